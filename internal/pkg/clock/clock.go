package clock

import (
	"sync"
	"time"
)

// Clock tells the current time
type Clock interface {
	Now() time.Time
}

// Real reads the system clock
type Real struct{}

func (Real) Now() time.Time {
	return time.Now()
}

// FakeClock is a manually advanced clock for tests
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
