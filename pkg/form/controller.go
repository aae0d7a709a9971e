package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Controller is one live form instance. All transitions run under a single
// mutex so timer callbacks and callers never interleave; instances share no
// state with each other.
//
// Validators, effect functions, the calculate function and Source.SetValue are
// called with the controller locked and must not call back into it. Submit
// callbacks and subscribers run unlocked.
type Controller[X any] struct {
	mu sync.Mutex

	id        string
	meta      Metadata[X]
	source    Source
	extra     X
	calculate CalculateFunc[X]
	submit    SubmitFunc
	logger    *slog.Logger
	timer     debouncer

	state   state
	dirty   bool // validation inputs changed since the last pass
	stale   bool // calculated values need recomputing
	changed bool // subscribers have not seen the latest state
	passes  int

	closed       atomic.Bool
	listeners    map[int]func(Snapshot[X])
	nextListener int
}

// New builds a controller over source using the per-field metadata table. A
// nil source is replaced by an empty MapSource. Options whose extra or
// calculate types do not match X panic.
func New[X any](source Source, meta Metadata[X], options ...Option) *Controller[X] {
	cfg := &config{
		clock:    systemClock{},
		debounce: DefaultDebounce,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}
	if source == nil {
		source = NewMapSource(nil)
	}
	if cfg.logger == nil {
		cfg.logger = discardLogger()
	}
	if cfg.id == "" {
		cfg.id = uuid.NewString()
	}

	c := &Controller[X]{
		id:        cfg.id,
		meta:      meta,
		source:    source,
		submit:    cfg.submit,
		logger:    cfg.logger,
		timer:     debouncer{clock: cfg.clock, delay: cfg.debounce},
		listeners: make(map[int]func(Snapshot[X])),
	}
	if cfg.extra != nil {
		extra, ok := cfg.extra.(X)
		if !ok {
			panic(fmt.Errorf("form: extra value %T does not match controller type %T", cfg.extra, c.extra))
		}
		c.extra = extra
	}
	if cfg.calculate != nil {
		calculate, ok := cfg.calculate.(CalculateFunc[X])
		if !ok {
			panic(fmt.Errorf("form: calculate func %T does not match controller type %T", cfg.calculate, c.calculate))
		}
		c.calculate = calculate
	}

	var calculated Values
	if c.calculate != nil {
		calculated = c.calculate(source.Values(), c.extra)
	}
	c.state = newState(calculated)
	return c
}

// ID identifies the controller in logs.
func (c *Controller[X]) ID() string {
	c.mustActive()
	return c.id
}

// Register marks field visible. Registering a visible field is a no-op;
// otherwise a debounced validation pass is scheduled.
func (c *Controller[X]) Register(field string) {
	_ = c.update(func() error {
		if c.dispatch(registerAction{field: field}) {
			c.scheduleLocked()
		}
		return nil
	})
}

// Unregister hides field and drops its error in the same transition.
// Unregistering an unknown field is a no-op.
func (c *Controller[X]) Unregister(field string) {
	_ = c.update(func() error {
		if c.dispatch(unregisterAction{field: field}) {
			c.scheduleLocked()
		}
		return nil
	})
}

// WriteOption tunes SetFieldValue.
type WriteOption func(*writeConfig)

type writeConfig struct {
	effects bool
}

// SkipEffects writes the value without running the field's effects.
func SkipEffects() WriteOption {
	return func(cfg *writeConfig) {
		cfg.effects = false
	}
}

// SetFieldValue commits value through the Source, marks the field touched,
// drops any cached edit and, unless SkipEffects is given, applies the field's
// effects to their targets. Effect failures wrap ErrEffectFailed; targets
// written before the failure keep their new values.
func (c *Controller[X]) SetFieldValue(field string, value any, opts ...WriteOption) error {
	cfg := writeConfig{effects: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return c.update(func() error {
		return c.setFieldValueLocked(field, value, cfg.effects)
	})
}

// SetCachedFieldValue stages value as an uncommitted edit. Committed values
// and touched state are left alone; validation reruns immediately.
func (c *Controller[X]) SetCachedFieldValue(field string, value any) {
	_ = c.update(func() error {
		c.dispatch(setCachedValueAction{field: field, value: value})
		c.dirty = true
		return nil
	})
}

// CommitFieldValue promotes the cached edit of field through SetFieldValue,
// effects included. Without a cached edit the field is only marked touched.
func (c *Controller[X]) CommitFieldValue(field string) error {
	return c.update(func() error {
		if value, ok := c.state.cached[field]; ok {
			return c.setFieldValueLocked(field, value, true)
		}
		c.dispatch(touchFieldAction{field: field})
		return nil
	})
}

// ProcessSubmit commits every cached edit in field-name order and hands the
// committed values, overlaid by those edits, to the submit callback. It does
// nothing when no callback was configured.
func (c *Controller[X]) ProcessSubmit(ctx context.Context) error {
	c.mustActive()
	if ctx == nil {
		return errors.New("form: context is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.submit == nil {
		return nil
	}

	var payload Values
	err := c.update(func() error {
		pending := c.state.cached.Clone()
		for _, field := range sortedKeys(pending) {
			if err := c.setFieldValueLocked(field, pending[field], true); err != nil {
				return fmt.Errorf("form: commit %q: %w", field, err)
			}
		}
		payload = c.source.Values().Overlay(pending)
		return nil
	})
	if err != nil {
		return err
	}

	c.logger.Debug("form: submit", "controller", c.id, "fields", len(payload))
	if err := c.submit(ctx, payload); err != nil {
		return fmt.Errorf("form: submit: %w", err)
	}
	return nil
}

// SetExtraValues replaces the extra context. Calculated values are recomputed
// and validation reruns.
func (c *Controller[X]) SetExtraValues(extra X) {
	_ = c.update(func() error {
		c.extra = extra
		c.stale = true
		c.dirty = true
		c.changed = true
		return nil
	})
}

// ValuesChanged tells the controller the host changed committed values
// without going through it.
func (c *Controller[X]) ValuesChanged() {
	_ = c.update(func() error {
		c.stale = true
		c.dirty = true
		c.changed = true
		return nil
	})
}

// Validate runs a full validation pass now, without waiting for a pending
// debounce.
func (c *Controller[X]) Validate() Errors {
	var errs Errors
	_ = c.update(func() error {
		c.revalidateLocked("manual")
		errs = c.state.errors.Clone()
		return nil
	})
	return errs
}

// Subscribe registers fn to receive a snapshot after every operation that
// changed state. The returned function removes the subscription.
func (c *Controller[X]) Subscribe(fn func(Snapshot[X])) func() {
	c.mustActive()
	if fn == nil {
		return func() {}
	}
	c.mu.Lock()
	key := c.nextListener
	c.nextListener++
	c.listeners[key] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, key)
			c.mu.Unlock()
		})
	}
}

// Close cancels any pending validation and retires the controller. Later
// calls panic with ErrClosed. Close is idempotent.
func (c *Controller[X]) Close() {
	if c == nil || c.closed.Swap(true) {
		return
	}
	c.mu.Lock()
	c.timer.stop()
	c.listeners = nil
	c.mu.Unlock()
	c.logger.Debug("form: closed", "controller", c.id)
}

func (c *Controller[X]) mustActive() {
	if c == nil {
		panic(fmt.Errorf("%w: controller is nil", ErrNoController))
	}
	if c.closed.Load() {
		panic(ErrClosed)
	}
}

// update runs fn as one transition: the reactive pass runs before the lock
// is released and subscribers are notified after.
func (c *Controller[X]) update(fn func() error) error {
	c.mustActive()
	notify, err := c.transition(fn)
	notify()
	return err
}

// transition holds the lock for fn and the reactive pass. The lock is
// released even when caller code panics.
func (c *Controller[X]) transition(fn func() error) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := fn()
	c.flushLocked()
	return c.drainLocked(), err
}

func (c *Controller[X]) read(fn func()) {
	c.mustActive()
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}

func (c *Controller[X]) dispatch(a action) bool {
	changed := c.state.reduce(a)
	if changed {
		c.changed = true
	}
	ctx := context.Background()
	if c.logger.Enabled(ctx, slog.LevelDebug) {
		attrs := []slog.Attr{
			slog.String("controller", c.id),
			slog.String("action", a.kind()),
			slog.Bool("changed", changed),
		}
		c.logger.LogAttrs(ctx, slog.LevelDebug, "form: action", append(attrs, a.attrs()...)...)
	}
	return changed
}

func (c *Controller[X]) setFieldValueLocked(field string, value any, effects bool) error {
	c.commitLocked(field, value)
	if !effects {
		return nil
	}
	return c.cascadeLocked(field, value)
}

// commitLocked is the committed-write path shared by primary and cascaded
// writes.
func (c *Controller[X]) commitLocked(field string, value any) {
	c.source.SetValue(field, value)
	c.dispatch(touchFieldAction{field: field})
	c.dispatch(unsetCachedValueAction{field: field})
	c.stale = true
	c.dirty = true
	c.changed = true
}

func (c *Controller[X]) refreshCalculatedLocked() {
	if !c.stale {
		return
	}
	c.stale = false
	if c.calculate == nil {
		return
	}
	c.dispatch(updateCalculatedAction{values: c.calculate(c.source.Values(), c.extra)})
}

func (c *Controller[X]) flushLocked() {
	c.refreshCalculatedLocked()
	if c.dirty {
		c.revalidateLocked("reactive")
	}
}

func (c *Controller[X]) scheduleLocked() {
	c.timer.arm(c.fireDebounced)
}

func (c *Controller[X]) fireDebounced(generation uint64) {
	if c.closed.Load() {
		return
	}
	c.debouncedPass(generation)()
}

func (c *Controller[X]) debouncedPass(generation uint64) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.timer.current(generation) {
		return func() {}
	}
	c.timer.timer = nil
	c.revalidateLocked("visibility")
	return c.drainLocked()
}

func (c *Controller[X]) drainLocked() func() {
	if !c.changed || len(c.listeners) == 0 {
		c.changed = false
		return func() {}
	}
	c.changed = false
	snapshot := c.snapshotLocked()
	listeners := make([]func(Snapshot[X]), 0, len(c.listeners))
	for _, key := range sortedListenerKeys(c.listeners) {
		listeners = append(listeners, c.listeners[key])
	}
	return func() {
		for _, fn := range listeners {
			fn(snapshot)
		}
	}
}

func sortedListenerKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	return keys
}
