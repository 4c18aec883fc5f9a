// Package clock provides an abstraction for time operations to improve
// testability. Dwell-time decisions in the risk-ladder promoter depend on the
// current time; using the Clock interface instead of time.Now() lets tests
// pin the clock to a fixed instant.
package clock

import "time"

// Clock is an interface for time operations.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the actual system time.
type RealClock struct{}

// Now returns the current time from the system clock.
func (RealClock) Now() time.Time {
	return time.Now()
}

// DaysSince returns the number of whole days between t and the clock's
// current time. Negative if t is in the future.
func DaysSince(c Clock, t time.Time) int {
	return int(c.Now().Sub(t).Hours() / 24)
}

// Ensure RealClock implements Clock.
var _ Clock = RealClock{}
