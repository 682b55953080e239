// Package clock abstracts the current time so run timestamps and IDs can be
// fixed in tests.
package clock

import "time"

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the system time.
type RealClock struct{}

// Now returns the current system time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Fixed is a Clock that always returns T. It advances only when Advance is called.
type Fixed struct {
	T time.Time
}

// Now returns the fixed time.
func (f *Fixed) Now() time.Time {
	return f.T
}

// Advance moves the fixed time forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.T = f.T.Add(d)
}

var (
	_ Clock = RealClock{}
	_ Clock = (*Fixed)(nil)
)
