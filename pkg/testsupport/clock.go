package testsupport

import (
	"sync"
	"time"

	"github.com/goliatone/go-formstate/pkg/form"
)

// ManualClock is a form.Clock whose timers only fire when the test says so.
// The zero value is ready to use.
type ManualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

var _ form.Clock = (*ManualClock)(nil)

type manualTimer struct {
	clock   *ManualClock
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

// AfterFunc records fn; it runs on the next Fire unless stopped first.
func (c *ManualClock) AfterFunc(d time.Duration, fn func()) form.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	timer := &manualTimer{clock: c, delay: d, fn: fn}
	c.timers = append(c.timers, timer)
	return timer
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Pending counts timers that are neither stopped nor fired.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, timer := range c.timers {
		if !timer.stopped && !timer.fired {
			count++
		}
	}
	return count
}

// Fire runs every pending timer in scheduling order, outside the clock lock.
func (c *ManualClock) Fire() {
	c.mu.Lock()
	var due []*manualTimer
	for _, timer := range c.timers {
		if !timer.stopped && !timer.fired {
			timer.fired = true
			due = append(due, timer)
		}
	}
	c.mu.Unlock()
	for _, timer := range due {
		timer.fn()
	}
}

// LastDelay reports the delay of the most recently scheduled timer.
func (c *ManualClock) LastDelay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return 0
	}
	return c.timers[len(c.timers)-1].delay
}
