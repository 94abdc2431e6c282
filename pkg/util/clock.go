package util

import "time"

// Clock abstracts time so confirmation polling can be driven by tests.
type Clock interface {
	After(d time.Duration) <-chan time.Time
	Now() time.Time
}

type RealClock struct{}

func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (RealClock) Now() time.Time                         { return time.Now() }

// ImmediateClock fires every timer at once and reports a fixed time.
type ImmediateClock struct {
	At time.Time
}

func (c ImmediateClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.At
	return ch
}

func (c ImmediateClock) Now() time.Time { return c.At }
