// Package postgres provides PostgreSQL infrastructure components.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ledgerd/pkg/logger"
)

// Lifecycle errors returned by the handle accessors. Callers must treat
// them as hard failures; the package never creates a replacement pool
// on the side to satisfy a request that arrived in the wrong state.
var (
	ErrNotConnected = errors.New("postgres: database not connected")
	ErrClosed       = errors.New("postgres: database closed")
)

// State is the lifecycle state of the shared database handle.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateClosed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// PoolConfig holds connection pool configuration.
type PoolConfig struct {
	DSN               string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// DefaultPoolConfig returns sensible defaults for production.
func DefaultPoolConfig(dsn string) PoolConfig {
	return PoolConfig{
		DSN:               dsn,
		MaxConns:          25,
		MinConns:          5,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   30 * time.Minute,
		HealthCheckPeriod: time.Minute,
	}
}

// Pool is the connection pool surface used by the transaction manager
// and repositories. *pgxpool.Pool satisfies it.
type Pool interface {
	Querier
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Stat() *pgxpool.Stat
	Close()
}

// Database is the process-wide handle to PostgreSQL. It starts
// uninitialized, becomes ready after Connect and unusable after
// Shutdown. Exactly one Database exists per process; everything that
// talks to the store resolves through it.
type Database struct {
	cfg PoolConfig

	mu       sync.RWMutex
	state    State
	pool     Pool
	inflight sync.WaitGroup
}

// NewDatabase creates an uninitialized handle. No I/O happens until Connect.
func NewDatabase(cfg PoolConfig) *Database {
	return &Database{cfg: cfg}
}

// Connect creates the connection pool and verifies it with a ping.
// It must be called exactly once, before any query or transaction.
func (d *Database) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateUninitialized {
		return fmt.Errorf("connect: invalid state %s", d.state)
	}

	poolConfig, err := pgxpool.ParseConfig(d.cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to parse DSN: %w", err)
	}

	poolConfig.MaxConns = d.cfg.MaxConns
	poolConfig.MinConns = d.cfg.MinConns
	poolConfig.MaxConnLifetime = d.cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = d.cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = d.cfg.HealthCheckPeriod

	// Custom connection setup
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		// Set application name for debugging
		_, err := conn.Exec(ctx, "SET application_name = 'ledgerd'")
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	d.pool = pool
	d.state = StateReady
	return nil
}

// Shutdown marks the handle closed, waits for in-flight transactions to
// finish (bounded by ctx) and releases the pool. New transactions and
// queries fail with ErrClosed as soon as Shutdown begins.
func (d *Database) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.state == StateClosed {
		d.mu.Unlock()
		return nil
	}
	prev := d.state
	d.state = StateClosed
	pool := d.pool
	d.mu.Unlock()

	if prev == StateUninitialized {
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()

	var drainErr error
	select {
	case <-done:
	case <-ctx.Done():
		drainErr = fmt.Errorf("shutdown drain: %w", ctx.Err())
		logger.Warn(ctx, "closing database with transactions still in flight")
	}

	pool.Close()
	return drainErr
}

// State returns the current lifecycle state.
func (d *Database) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Ready reports whether the handle accepts work.
func (d *Database) Ready() bool {
	return d.State() == StateReady
}

// handle returns the pool when the database is ready.
func (d *Database) handle() (Pool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	switch d.state {
	case StateReady:
		return d.pool, nil
	case StateClosed:
		return nil, ErrClosed
	default:
		return nil, ErrNotConnected
	}
}

// beginWork registers one unit of in-flight work so Shutdown can drain
// it. The returned release must be called exactly once.
func (d *Database) beginWork() (Pool, func(), error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	switch d.state {
	case StateReady:
		d.inflight.Add(1)
		return d.pool, func() { d.inflight.Done() }, nil
	case StateClosed:
		return nil, nil, ErrClosed
	default:
		return nil, nil, ErrNotConnected
	}
}

// Ping verifies connectivity. Fails with the lifecycle error when the
// handle is not ready.
func (d *Database) Ping(ctx context.Context) error {
	pool, err := d.handle()
	if err != nil {
		return err
	}
	return pool.Ping(ctx)
}

// PoolStats returns current pool statistics for metrics.
type PoolStats struct {
	TotalConns      int32
	AcquiredConns   int32
	IdleConns       int32
	MaxConns        int32
	AcquireCount    int64
	AcquireDuration time.Duration
}

// Stats extracts statistics from the pool.
func (d *Database) Stats() (PoolStats, error) {
	pool, err := d.handle()
	if err != nil {
		return PoolStats{}, err
	}
	stat := pool.Stat()
	return PoolStats{
		TotalConns:      stat.TotalConns(),
		AcquiredConns:   stat.AcquiredConns(),
		IdleConns:       stat.IdleConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration(),
	}, nil
}

// LogStats logs pool statistics.
func (d *Database) LogStats(ctx context.Context) {
	stats, err := d.Stats()
	if err != nil {
		return
	}
	logger.Info(ctx, "database pool stats",
		"total", stats.TotalConns,
		"acquired", stats.AcquiredConns,
		"idle", stats.IdleConns,
		"max", stats.MaxConns,
	)
}
