package events

import (
	"sync"
	"time"
)

// Clock returns monotonic seconds. Capture, recording and tests share it so
// arming times and event timestamps are directly comparable.
type Clock func() float64

var origin = time.Now()

// Monotonic reads seconds elapsed since process start using the runtime's
// monotonic clock reading.
func Monotonic() float64 {
	return time.Since(origin).Seconds()
}

// ManualClock is a settable clock for tests and scripted sources.
type ManualClock struct {
	mu  sync.Mutex
	now float64
}

// Now returns the current value.
func (c *ManualClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *ManualClock) Set(t float64) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d seconds.
func (c *ManualClock) Advance(d float64) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}
