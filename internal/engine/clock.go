package engine

import "time"

// Clock abstracts time.Now() to allow deterministic testing.
// The Generator uses it for DTSTAMP and, when no reference date is
// configured, to decide which year birthdays are projected onto.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current local time.
func (RealClock) Now() time.Time {
	return time.Now()
}
