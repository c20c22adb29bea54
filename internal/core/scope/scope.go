// Package scope provides typed propagation of call-chain-local values
// over context.Context. A Slot is one named kind of value; code running
// under Run (or below a Bind) sees the value, siblings and callers do not.
package scope

import "context"

// Slot carries one kind of chain-scoped value of type T.
// The slot pointer itself is the context key, so two slots never
// collide even when their type parameters and names match.
type Slot[T any] struct {
	name string
}

// NewSlot creates a slot. The name appears only in diagnostics.
func NewSlot[T any](name string) *Slot[T] {
	return &Slot[T]{name: name}
}

// Name returns the diagnostic name of the slot.
func (s *Slot[T]) Name() string {
	return s.name
}

// Bind returns a context whose chain observes v in this slot.
// The parent context is not modified.
func (s *Slot[T]) Bind(ctx context.Context, v T) context.Context {
	return context.WithValue(ctx, s, v)
}

// Current returns the value visible to this chain and whether one is bound.
func (s *Slot[T]) Current(ctx context.Context) (T, bool) {
	v, ok := ctx.Value(s).(T)
	return v, ok
}

// Run invokes fn with v bound in this slot for fn's extent.
// fn's error is returned unchanged; the caller's context is untouched,
// so after Run returns the caller still sees whatever was bound before.
func (s *Slot[T]) Run(ctx context.Context, v T, fn func(ctx context.Context) error) error {
	return fn(s.Bind(ctx, v))
}
