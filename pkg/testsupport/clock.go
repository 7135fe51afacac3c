package testsupport

import (
	"sync"
	"time"
)

// Clock is a manually advanced time source for TTL tests.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

// NewClock returns a Clock frozen at a fixed instant.
func NewClock() *Clock {
	return &Clock{t: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
}

// Now returns the current fake time. Pass it where a func() time.Time is expected.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
