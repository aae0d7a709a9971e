package form

import (
	"context"
	"fmt"
)

type contextKey[X any] struct{}

// NewContext returns a copy of ctx carrying c, so presentation code can
// resolve the controller it was mounted under.
func NewContext[X any](ctx context.Context, c *Controller[X]) context.Context {
	return context.WithValue(ctx, contextKey[X]{}, c)
}

// FromContext returns the controller attached by NewContext. A missing or
// nil controller is a wiring mistake and panics with ErrNoController.
func FromContext[X any](ctx context.Context) *Controller[X] {
	if ctx == nil {
		panic(fmt.Errorf("%w: context is nil", ErrNoController))
	}
	c, _ := ctx.Value(contextKey[X]{}).(*Controller[X])
	if c == nil {
		panic(fmt.Errorf("%w: no controller for %T in context", ErrNoController, *new(X)))
	}
	return c
}

// FieldFromContext mounts name on the controller carried by ctx.
func FieldFromContext[X any](ctx context.Context, name string) *Field[X] {
	return FromContext[X](ctx).Field(name)
}
