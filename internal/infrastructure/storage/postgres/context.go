package postgres

import (
	"context"

	"ledgerd/internal/core/scope"
)

// txSlot carries the active transaction for one call chain. It is bound
// exactly once, when a root transaction starts; joined callbacks inherit
// the same value through their context and never re-bind it.
//
// Domain code should depend on internal/core/tx.Manager and never read
// the transaction out of the context itself.
var txSlot = scope.NewSlot[*Tx]("postgres.tx")

// bindTx returns a context whose chain resolves queries to t.
func bindTx(ctx context.Context, t *Tx) context.Context {
	return txSlot.Bind(ctx, t)
}

// currentTx returns the transaction visible to this chain, or nil.
func currentTx(ctx context.Context) *Tx {
	if t, ok := txSlot.Current(ctx); ok {
		return t
	}
	return nil
}
