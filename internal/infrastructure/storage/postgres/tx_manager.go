package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ledgerd/internal/core/tx"
	"ledgerd/internal/core/txid"
	"ledgerd/pkg/logger"
)

var tracer = otel.Tracer("ledgerd/tx")

// Compile-time check that TxManager implements tx.ReadOnlyManager.
var _ tx.ReadOnlyManager = (*TxManager)(nil)

// TxOptions configures transaction behavior.
type TxOptions struct {
	// IsolationLevel: pgx.Serializable, pgx.RepeatableRead, pgx.ReadCommitted
	IsolationLevel pgx.TxIsoLevel

	// AccessMode: pgx.ReadWrite, pgx.ReadOnly
	AccessMode pgx.TxAccessMode

	// StatementTimeout protects against long-running queries (default 30s)
	StatementTimeout time.Duration
}

// DefaultTxOptions returns production-safe defaults.
func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsolationLevel:   pgx.ReadCommitted,
		AccessMode:       pgx.ReadWrite,
		StatementTimeout: 30 * time.Second,
	}
}

// SerializableTxOptions for critical operations requiring serializable isolation.
func SerializableTxOptions() TxOptions {
	opts := DefaultTxOptions()
	opts.IsolationLevel = pgx.Serializable
	return opts
}

// TxManager coordinates database transactions:
//   - exactly one native transaction per outermost RunInTransaction call
//   - nested calls join the active transaction through context
//   - statement timeout protection
//   - definite commit or rollback even when the caller's context dies
type TxManager struct {
	db *Database
}

// NewTxManager creates a transaction manager over the shared database handle.
func NewTxManager(db *Database) *TxManager {
	return &TxManager{db: db}
}

// Tx wraps pgx.Tx with correlation metadata.
type Tx struct {
	pgx.Tx
	ID string
}

// RunInTransaction executes fn within a transaction.
// If a transaction is already carried by ctx, it is joined, not duplicated.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.RunInTransactionWithOptions(ctx, DefaultTxOptions(), fn)
}

// RunInTransactionWithOptions executes fn with custom transaction options.
// Options apply only when this call starts the root transaction; a
// joining call runs under the root's options.
func (m *TxManager) RunInTransactionWithOptions(ctx context.Context, opts TxOptions, fn func(ctx context.Context) error) error {
	// Start tracing span
	ctx, span := tracer.Start(ctx, "transaction",
		trace.WithAttributes(
			attribute.String("tx.isolation", string(opts.IsolationLevel)),
		))
	defer span.End()

	// Join the transaction this chain already carries
	if existing := m.GetTx(ctx); existing != nil {
		return m.joinTransaction(ctx, existing, fn)
	}

	// Start new transaction
	return m.startNewTransaction(ctx, opts, fn)
}

// startNewTransaction begins a new database transaction.
func (m *TxManager) startNewTransaction(ctx context.Context, opts TxOptions, fn func(ctx context.Context) error) error {
	pool, release, err := m.db.beginWork()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer release()

	pgxTx, err := pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   opts.IsolationLevel,
		AccessMode: opts.AccessMode,
	})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	// Set statement timeout for protection against runaway queries
	if opts.StatementTimeout > 0 {
		_, err = pgxTx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", opts.StatementTimeout.Milliseconds()))
		if err != nil {
			_ = pgxTx.Rollback(context.Background())
			return fmt.Errorf("set statement_timeout: %w", err)
		}
	}

	id := txid.New()
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("tx.id", id))

	// Bind the transaction and its diagnostics for fn's chain only
	wrapped := &Tx{Tx: pgxTx, ID: id}
	txCtx := bindTx(ctx, wrapped)
	txCtx = tx.WithInfo(txCtx, tx.Info{ID: id, Depth: 1})

	// Execute function
	if err := m.executeWithRollbackProtection(txCtx, pgxTx, fn); err != nil {
		return err
	}

	// Commit transaction
	if err := pgxTx.Commit(ctx); err != nil {
		// The native transaction must not linger: resolve it on a
		// background context. ErrTxClosed means the server side already
		// finished it.
		if rbErr := pgxTx.Rollback(context.Background()); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			logger.Error(txCtx, "rollback after failed commit", "error", rbErr)
		}
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// joinTransaction runs fn inside the transaction the caller already
// opened. No second native transaction starts and the bound handle is
// left untouched; only the diagnostic depth grows for fn's extent.
// Commit and rollback remain the root call's responsibility.
func (m *TxManager) joinTransaction(ctx context.Context, existing *Tx, fn func(ctx context.Context) error) error {
	info, ok := tx.GetInfo(ctx)
	if !ok {
		info = tx.Info{ID: existing.ID, Depth: 1}
	}
	ctx = tx.WithInfo(ctx, tx.Info{ID: existing.ID, Depth: info.Depth + 1})

	return fn(ctx)
}

// executeWithRollbackProtection runs fn and handles rollback on error.
// Rollback uses a background context so a cancelled caller cannot leave
// the native transaction dangling; fn's error is returned unchanged.
func (m *TxManager) executeWithRollbackProtection(ctx context.Context, pgxTx pgx.Tx, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if err != nil {
		if rbErr := pgxTx.Rollback(context.Background()); rbErr != nil {
			logger.Error(ctx, "rollback failed", "error", rbErr, "original_error", err)
		}
		return err
	}
	return nil
}

// GetTx returns the current transaction from context, or nil if none.
func (m *TxManager) GetTx(ctx context.Context) *Tx {
	return currentTx(ctx)
}

// Querier is the query surface shared by the pool and transactions.
// Repositories work against it so the same code runs inside and outside
// a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GetQuerier resolves the querier for this chain: the bound transaction
// when one is active, otherwise the shared pool. Outside a transaction
// the database must be ready; lifecycle errors surface as is and are
// never masked by creating a replacement handle on the fly.
func (m *TxManager) GetQuerier(ctx context.Context) (Querier, error) {
	if t := m.GetTx(ctx); t != nil {
		return t.Tx, nil
	}
	pool, err := m.db.handle()
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// ReadOnly executes fn in a read-only transaction.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	opts := DefaultTxOptions()
	opts.AccessMode = pgx.ReadOnly
	return m.RunInTransactionWithOptions(ctx, opts, fn)
}
