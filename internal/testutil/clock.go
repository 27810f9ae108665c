package testutil

import (
	"sync"
	"time"
)

// DefaultEpoch is the first instant a DeterministicClock returns.
var DefaultEpoch = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

// DeterministicClock is a thread-safe stepping wall clock for tests.
//
// Each call to Now returns the epoch plus n*step and then advances n, so a
// scenario stamps the same received_at values on every run.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	epoch time.Time
	step  time.Duration
	n     int64
}

// NewDeterministicClock creates a clock starting at epoch that advances by
// step on every Now call. A zero epoch uses DefaultEpoch.
func NewDeterministicClock(epoch time.Time, step time.Duration) *DeterministicClock {
	if epoch.IsZero() {
		epoch = DefaultEpoch
	}
	return &DeterministicClock{epoch: epoch.UTC(), step: step}
}

// Now returns the current instant and advances the clock by one step.
// Its signature matches time.Now so it can be passed as a clock func.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.epoch.Add(time.Duration(c.n) * c.step)
	c.n++
	return t
}

// Current returns the instant the next Now call will return, without
// advancing.
func (c *DeterministicClock) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch.Add(time.Duration(c.n) * c.step)
}

// Reset rewinds the clock to its epoch.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
}
