package form

import (
	"fmt"
	"sync"
)

// Field is a handle bound to one field of a controller. Obtaining it mounts
// the field; Release unmounts it.
type Field[X any] struct {
	name    string
	ctrl    *Controller[X]
	release sync.Once
}

// Field registers name and returns its handle.
func (c *Controller[X]) Field(name string) *Field[X] {
	c.Register(name)
	return &Field[X]{name: name, ctrl: c}
}

// Name returns the field name.
func (f *Field[X]) Name() string {
	return f.name
}

// Value returns the effective value.
func (f *Field[X]) Value() any {
	return f.controller().Value(f.name)
}

// Error returns the current validation message, or "".
func (f *Field[X]) Error() string {
	return f.controller().Error(f.name)
}

// IsTouched reports whether the field was committed at least once.
func (f *Field[X]) IsTouched() bool {
	return f.controller().IsTouched(f.name)
}

// SetValue commits value and runs the field's effects.
func (f *Field[X]) SetValue(value any) error {
	return f.controller().SetFieldValue(f.name, value)
}

// SetCachedValue stages an uncommitted edit.
func (f *Field[X]) SetCachedValue(value any) {
	f.controller().SetCachedFieldValue(f.name, value)
}

// CommitValue promotes the staged edit, if any.
func (f *Field[X]) CommitValue() error {
	return f.controller().CommitFieldValue(f.name)
}

// Release unregisters the field. Calls after the first are no-ops, as is
// releasing against a controller that was already closed.
func (f *Field[X]) Release() {
	ctrl := f.controller()
	f.release.Do(func() {
		if ctrl.closed.Load() {
			return
		}
		ctrl.Unregister(f.name)
	})
}

func (f *Field[X]) controller() *Controller[X] {
	if f == nil || f.ctrl == nil {
		panic(fmt.Errorf("%w: field handle is not bound", ErrNoController))
	}
	return f.ctrl
}
