package form

import "context"

// Snapshot is a copy of the controller state at one point in time. Mutating
// it does not affect the controller.
type Snapshot[X any] struct {
	ID string
	// Values holds effective values: cached edits over committed values.
	Values     Values
	Committed  Values
	Cached     Values
	Calculated Values
	Extra      X
	Errors     Errors
	Touched    map[string]bool
	Visible    map[string]bool
}

// RenderProps is what Render hands to render-style consumers. Values are the
// committed values; uncommitted edits are only visible through Snapshot.
type RenderProps[X any] struct {
	Values        Values
	Calculated    Values
	Extra         X
	Errors        Errors
	ProcessSubmit func(ctx context.Context) error
}

// Snapshot copies the current state.
func (c *Controller[X]) Snapshot() Snapshot[X] {
	var snap Snapshot[X]
	c.read(func() {
		snap = c.snapshotLocked()
	})
	return snap
}

// Render calls fn with the current render props.
func (c *Controller[X]) Render(fn func(RenderProps[X])) {
	if fn == nil {
		return
	}
	var props RenderProps[X]
	c.read(func() {
		props = RenderProps[X]{
			Values:        c.source.Values().Clone(),
			Calculated:    c.state.calculated.Clone(),
			Extra:         c.extra,
			Errors:        c.state.errors.Clone(),
			ProcessSubmit: c.ProcessSubmit,
		}
	})
	fn(props)
}

// Value returns the effective value of field.
func (c *Controller[X]) Value(field string) any {
	var value any
	c.read(func() {
		value = c.state.effective(field, c.source.Values())
	})
	return value
}

// Error returns the current error of field, or "".
func (c *Controller[X]) Error(field string) string {
	var message string
	c.read(func() {
		message = c.state.errors[field]
	})
	return message
}

// IsTouched reports whether field received a committed write or commit.
func (c *Controller[X]) IsTouched(field string) bool {
	var touched bool
	c.read(func() {
		touched = c.state.isTouched(field)
	})
	return touched
}

// IsVisible reports whether field is registered.
func (c *Controller[X]) IsVisible(field string) bool {
	var visible bool
	c.read(func() {
		visible = c.state.isVisible(field)
	})
	return visible
}

// HasCachedValue reports whether field holds an uncommitted edit.
func (c *Controller[X]) HasCachedValue(field string) bool {
	var ok bool
	c.read(func() {
		ok = c.state.hasCached(field)
	})
	return ok
}

// Values returns the effective values of every field.
func (c *Controller[X]) Values() Values {
	var values Values
	c.read(func() {
		values = c.state.effectiveValues(c.source.Values())
	})
	return values
}

// Errors returns a copy of the error map.
func (c *Controller[X]) Errors() Errors {
	var errs Errors
	c.read(func() {
		errs = c.state.errors.Clone()
	})
	return errs
}

// Touched returns the touched fields.
func (c *Controller[X]) Touched() map[string]bool {
	var touched map[string]bool
	c.read(func() {
		touched = setCopy(c.state.touched)
	})
	return touched
}

// Visible returns the registered fields.
func (c *Controller[X]) Visible() map[string]bool {
	var visible map[string]bool
	c.read(func() {
		visible = setCopy(c.state.visible)
	})
	return visible
}

// Calculated returns the latest calculated values.
func (c *Controller[X]) Calculated() Values {
	var values Values
	c.read(func() {
		values = c.state.calculated.Clone()
	})
	return values
}

// Extra returns the current extra context.
func (c *Controller[X]) Extra() X {
	var extra X
	c.read(func() {
		extra = c.extra
	})
	return extra
}

func (c *Controller[X]) snapshotLocked() Snapshot[X] {
	committed := c.source.Values().Clone()
	return Snapshot[X]{
		ID:         c.id,
		Values:     c.state.effectiveValues(committed),
		Committed:  committed,
		Cached:     c.state.cached.Clone(),
		Calculated: c.state.calculated.Clone(),
		Extra:      c.extra,
		Errors:     c.state.errors.Clone(),
		Touched:    setCopy(c.state.touched),
		Visible:    setCopy(c.state.visible),
	}
}
