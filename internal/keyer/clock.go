package keyer

import (
	"sync"
	"time"
)

// Clock supplies monotonic event timestamps as offsets from its own epoch.
type Clock interface {
	Now() time.Duration
}

// MonotonicClock reads the runtime's monotonic clock.
type MonotonicClock struct {
	epoch time.Time
}

// NewMonotonicClock returns a clock whose epoch is the moment of creation.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{epoch: time.Now()}
}

// Now returns the time elapsed since the epoch. time.Since uses the monotonic
// reading so wall clock adjustments do not affect it.
func (c *MonotonicClock) Now() time.Duration {
	return time.Since(c.epoch)
}

// ManualClock only moves when told to. Used for scripted replay and tests.
type ManualClock struct {
	mu  sync.Mutex
	now time.Duration
}

// Now returns the current manual time.
func (c *ManualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new time.
// Negative values are ignored so time never runs backwards.
func (c *ManualClock) Advance(d time.Duration) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.now += d
	}
	return c.now
}
