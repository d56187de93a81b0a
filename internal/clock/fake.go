package clock

import "time"

// FakeClock is a manually driven Clock for billing-date tests.
type FakeClock struct {
	now time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// SetNow jumps the clock to an absolute instant.
func (c *FakeClock) SetNow(t time.Time) {
	c.now = t.UTC()
}
