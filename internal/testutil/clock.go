package testutil

import (
	"sync"
	"time"
)

// FixedClock provides a thread-safe deterministic time source for tests.
//
// Each call to Now advances the clock by a fixed step, so recorded
// timestamps are stable across runs and golden files never churn.
type FixedClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewFixedClock creates a clock starting at start that advances by step
// on every Now call. The first call returns start.
func NewFixedClock(start time.Time, step time.Duration) *FixedClock {
	return &FixedClock{now: start, step: step}
}

// Now returns the current instant and advances the clock.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Reset rewinds the clock to start. Used for test reuse.
func (c *FixedClock) Reset(start time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = start
}
