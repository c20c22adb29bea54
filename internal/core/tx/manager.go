// Package tx defines the transaction contract domain services depend on.
// The pgx-backed implementation lives in infrastructure/storage/postgres;
// domain code never touches a driver handle directly.
package tx

import (
	"context"
)

// Manager runs functions inside a database transaction.
type Manager interface {
	// RunInTransaction executes fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn succeeds, the transaction is committed.
	//
	// Nested calls join the transaction already carried by ctx: the
	// callback runs inside the caller's transaction and no second
	// native transaction is opened. Commit and rollback happen only
	// when the outermost call unwinds.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager extends Manager with read-only transaction support.
// Use for queries that don't modify data.
type ReadOnlyManager interface {
	Manager

	// ReadOnly executes fn in a read-only transaction.
	// Attempts to modify data will fail.
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
