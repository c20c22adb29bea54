package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDatabase_StartsUninitialized(t *testing.T) {
	db := NewDatabase(DefaultPoolConfig("postgres://fake"))

	if got := db.State(); got != StateUninitialized {
		t.Fatalf("state: got %s, want uninitialized", got)
	}
	if db.Ready() {
		t.Error("Ready() true before Connect")
	}
	if err := db.Ping(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Ping before connect: got %v, want ErrNotConnected", err)
	}
	if _, err := db.Stats(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Stats before connect: got %v, want ErrNotConnected", err)
	}
}

func TestDatabase_ConnectRejectsBadDSN(t *testing.T) {
	db := NewDatabase(DefaultPoolConfig("://not-a-dsn"))

	err := db.Connect(context.Background())
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "parse DSN") {
		t.Errorf("unexpected error: %v", err)
	}
	if got := db.State(); got != StateUninitialized {
		t.Errorf("failed connect must not change state, got %s", got)
	}
}

func TestDatabase_ConnectRequiresUninitialized(t *testing.T) {
	pool := &fakePool{}
	db := readyDatabase(pool)

	if err := db.Connect(context.Background()); err == nil {
		t.Fatal("second Connect must fail")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := db.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := db.Connect(context.Background()); err == nil {
		t.Fatal("Connect after Shutdown must fail; the handle is not reusable")
	}
}

func TestDatabase_ShutdownFromUninitialized(t *testing.T) {
	db := NewDatabase(DefaultPoolConfig("postgres://fake"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := db.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if got := db.State(); got != StateClosed {
		t.Errorf("state: got %s, want closed", got)
	}

	// Idempotent.
	if err := db.Shutdown(ctx); err != nil {
		t.Errorf("second shutdown: %v", err)
	}
}

func TestDatabase_ShutdownClosesPool(t *testing.T) {
	pool := &fakePool{}
	db := readyDatabase(pool)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := db.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !pool.closed {
		t.Error("pool not closed")
	}
	if err := db.Ping(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Ping after shutdown: got %v, want ErrClosed", err)
	}
}

func TestDatabase_ShutdownDrainsInflightTransactions(t *testing.T) {
	pool := &fakePool{}
	db := readyDatabase(pool)
	txm := NewTxManager(db)

	entered := make(chan struct{})
	release := make(chan struct{})
	txDone := make(chan error, 1)
	go func() {
		txDone <- txm.RunInTransaction(context.Background(), func(ctx context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	shutdownDone := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownDone <- db.Shutdown(ctx)
	}()

	// New work is rejected as soon as shutdown begins.
	waitForState(t, db, StateClosed)
	if err := txm.RunInTransaction(context.Background(), func(ctx context.Context) error { return nil }); !errors.Is(err, ErrClosed) {
		t.Errorf("new root during drain: got %v, want ErrClosed", err)
	}

	// Shutdown must not return while the root is still open.
	select {
	case <-shutdownDone:
		t.Fatal("shutdown returned before in-flight transaction finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	if err := <-txDone; err != nil {
		t.Fatalf("in-flight transaction: %v", err)
	}

	select {
	case err := <-shutdownDone:
		if err != nil {
			t.Fatalf("shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not return after drain completed")
	}

	if !pool.closed {
		t.Error("pool not closed after drain")
	}
	if ft := pool.begun[0]; ft.commits != 1 {
		t.Errorf("drained transaction commits: got %d, want 1", ft.commits)
	}
}

func TestDatabase_ShutdownDrainTimeout(t *testing.T) {
	pool := &fakePool{}
	db := readyDatabase(pool)
	txm := NewTxManager(db)

	entered := make(chan struct{})
	release := make(chan struct{})
	txDone := make(chan error, 1)
	go func() {
		txDone <- txm.RunInTransaction(context.Background(), func(ctx context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := db.Shutdown(ctx)
	if err == nil {
		t.Fatal("expected drain timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v, want deadline exceeded in chain", err)
	}

	close(release)
	<-txDone
}

func waitForState(t *testing.T, db *Database, want State) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if db.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("state never became %s (now %s)", want, db.State())
}
