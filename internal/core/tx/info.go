package tx

import (
	"context"

	"ledgerd/internal/core/scope"
)

// Info is the observational projection of the active transaction:
// the correlation ID assigned when the root transaction began and the
// join depth of the current callback (1 for the root, +1 per join).
// It exists for logging and audit attribution only; resolving the
// actual database handle never goes through Info.
type Info struct {
	ID    string
	Depth int
}

var infoSlot = scope.NewSlot[Info]("tx.info")

// WithInfo binds transaction diagnostics for the chain derived from ctx.
func WithInfo(ctx context.Context, info Info) context.Context {
	return infoSlot.Bind(ctx, info)
}

// GetInfo returns the diagnostics visible to this chain.
func GetInfo(ctx context.Context) (Info, bool) {
	return infoSlot.Current(ctx)
}

// GetID returns the active transaction's correlation ID or "" outside one.
func GetID(ctx context.Context) string {
	info, ok := infoSlot.Current(ctx)
	if !ok {
		return ""
	}
	return info.ID
}
