// Package testutil provides the deterministic clock and id generator
// used by package tests and the scenario harness.
package testutil

import (
	"sync"
	"time"
)

// Origin is the fixed starting instant of every deterministic clock.
var Origin = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Clock is a deterministic wall clock: a fixed origin advanced one step
// per call. Safe for concurrent use; resettable for test reuse.
type Clock struct {
	mu    sync.Mutex
	step  time.Duration
	ticks int
}

// NewClock creates a clock advancing one second per call.
func NewClock() *Clock {
	return &Clock{step: time.Second}
}

// Now advances the clock and returns the new instant. The first call
// returns Origin plus one step.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	return Origin.Add(time.Duration(c.ticks) * c.step)
}

// Current returns the most recently issued instant without advancing.
func (c *Clock) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Origin.Add(time.Duration(c.ticks) * c.step)
}

// Reset rewinds the clock to its origin.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}
