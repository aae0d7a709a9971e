package form

import "time"

// DefaultDebounce is the quiet period between the last visibility change and
// the validation pass it triggers.
const DefaultDebounce = 100 * time.Millisecond

// Timer is a pending callback that can be cancelled. *time.Timer satisfies it.
type Timer interface {
	Stop() bool
}

// Clock schedules delayed callbacks.
type Clock interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// debouncer owns at most one pending timer. Every arm bumps the generation so
// a callback that already fired for a cancelled timer can tell it is stale.
type debouncer struct {
	clock      Clock
	delay      time.Duration
	timer      Timer
	generation uint64
}

func (d *debouncer) arm(fire func(generation uint64)) {
	d.stop()
	d.generation++
	generation := d.generation
	d.timer = d.clock.AfterFunc(d.delay, func() {
		fire(generation)
	})
}

func (d *debouncer) current(generation uint64) bool {
	return d.timer != nil && generation == d.generation
}

func (d *debouncer) stop() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
