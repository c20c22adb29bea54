package postgres

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MockExec records one statement executed through a mock.
type MockExec struct {
	SQL  string
	Args []any
}

// MockTx is a test implementation of pgx.Tx.
// Use in unit tests to avoid database dependencies. Lifecycle calls are
// counted and a finished transaction reports pgx.ErrTxClosed, matching
// the driver.
type MockTx struct {
	ExecFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
	CopyFromFunc func(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)

	mu        sync.Mutex
	commits   int
	rollbacks int
	execs     []MockExec
	done      bool
}

// Commit implements pgx.Tx.
func (t *MockTx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	if t.CommitFunc != nil {
		if err := t.CommitFunc(ctx); err != nil {
			return err
		}
	}
	t.commits++
	return nil
}

// Rollback implements pgx.Tx.
func (t *MockTx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	if t.RollbackFunc != nil {
		if err := t.RollbackFunc(ctx); err != nil {
			return err
		}
	}
	t.rollbacks++
	return nil
}

// Exec implements pgx.Tx. The default reports one affected row.
func (t *MockTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.mu.Lock()
	t.execs = append(t.execs, MockExec{SQL: sql, Args: args})
	t.mu.Unlock()

	if t.ExecFunc != nil {
		return t.ExecFunc(ctx, sql, args...)
	}
	return pgconn.NewCommandTag("MOCK 1"), nil
}

// Query implements pgx.Tx.
func (t *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if t.QueryFunc != nil {
		return t.QueryFunc(ctx, sql, args...)
	}
	return nil, errors.New("postgres: MockTx.Query not configured")
}

// QueryRow implements pgx.Tx.
func (t *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if t.QueryRowFunc != nil {
		return t.QueryRowFunc(ctx, sql, args...)
	}
	return errRow{errors.New("postgres: MockTx.QueryRow not configured")}
}

// CopyFrom implements pgx.Tx. The default drains the source and reports
// the row count.
func (t *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	if t.CopyFromFunc != nil {
		return t.CopyFromFunc(ctx, tableName, columnNames, rowSrc)
	}
	var n int64
	for rowSrc.Next() {
		if _, err := rowSrc.Values(); err != nil {
			return n, err
		}
		n++
	}
	return n, rowSrc.Err()
}

// Begin implements pgx.Tx.
func (t *MockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("postgres: MockTx.Begin not supported")
}

// SendBatch implements pgx.Tx.
func (t *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

// LargeObjects implements pgx.Tx.
func (t *MockTx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}

// Prepare implements pgx.Tx.
func (t *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, errors.New("postgres: MockTx.Prepare not supported")
}

// Conn implements pgx.Tx.
func (t *MockTx) Conn() *pgx.Conn {
	return nil
}

// Commits returns how many times Commit succeeded.
func (t *MockTx) Commits() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.commits
}

// Rollbacks returns how many times Rollback succeeded.
func (t *MockTx) Rollbacks() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rollbacks
}

// Execs returns the statements executed so far.
func (t *MockTx) Execs() []MockExec {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]MockExec, len(t.execs))
	copy(out, t.execs)
	return out
}

// Done reports whether the transaction finished.
func (t *MockTx) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// errRow is a pgx.Row that fails on Scan.
type errRow struct{ err error }

func (r errRow) Scan(dest ...any) error { return r.err }

// MockPool is a test implementation of Pool. BeginTx hands out MockTx
// instances, which the test inspects afterwards through Begun.
type MockPool struct {
	BeginErr error
	PingErr  error

	BeginTxFunc  func(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	ExecFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row

	mu        sync.Mutex
	begun     []*MockTx
	beginOpts []pgx.TxOptions
	execs     []MockExec
	closed    bool
}

// BeginTx implements Pool.
func (p *MockPool) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	if p.BeginTxFunc != nil {
		return p.BeginTxFunc(ctx, txOptions)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.BeginErr != nil {
		return nil, p.BeginErr
	}
	p.beginOpts = append(p.beginOpts, txOptions)
	t := &MockTx{}
	p.begun = append(p.begun, t)
	return t, nil
}

// Exec implements Pool.
func (p *MockPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	p.mu.Lock()
	p.execs = append(p.execs, MockExec{SQL: sql, Args: args})
	p.mu.Unlock()

	if p.ExecFunc != nil {
		return p.ExecFunc(ctx, sql, args...)
	}
	return pgconn.NewCommandTag("MOCK 1"), nil
}

// Query implements Pool.
func (p *MockPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if p.QueryFunc != nil {
		return p.QueryFunc(ctx, sql, args...)
	}
	return nil, errors.New("postgres: MockPool.Query not configured")
}

// QueryRow implements Pool.
func (p *MockPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if p.QueryRowFunc != nil {
		return p.QueryRowFunc(ctx, sql, args...)
	}
	return errRow{errors.New("postgres: MockPool.QueryRow not configured")}
}

// Ping implements Pool.
func (p *MockPool) Ping(ctx context.Context) error {
	return p.PingErr
}

// Stat implements Pool. Pool statistics are not mocked.
func (p *MockPool) Stat() *pgxpool.Stat {
	return nil
}

// Close implements Pool.
func (p *MockPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

// Begun returns the transactions started so far.
func (p *MockPool) Begun() []*MockTx {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*MockTx, len(p.begun))
	copy(out, p.begun)
	return out
}

// BeginOpts returns the options each transaction was started with.
func (p *MockPool) BeginOpts() []pgx.TxOptions {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]pgx.TxOptions, len(p.beginOpts))
	copy(out, p.beginOpts)
	return out
}

// Closed reports whether Close was called.
func (p *MockPool) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// NewMockDatabase returns a ready Database over the given pool without
// connecting. Use in unit tests to run the real transaction manager
// against mocks; pass nil to get a fresh MockPool.
func NewMockDatabase(pool Pool) *Database {
	if pool == nil {
		pool = &MockPool{}
	}
	return &Database{
		cfg:   DefaultPoolConfig("postgres://mock"),
		state: StateReady,
		pool:  pool,
	}
}

// Ensure compile-time interface compliance.
var (
	_ pgx.Tx = (*MockTx)(nil)
	_ Pool   = (*MockPool)(nil)
)
