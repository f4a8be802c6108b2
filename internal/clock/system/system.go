// Package system provides the wall clock used for timestamps on stored rows and
// progress events.
package system

import "time"

// Clock implements harvest.Clock.
type Clock struct{}

// New creates a Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time in UTC, truncated to microseconds to match what
// Postgres timestamptz columns keep.
func (Clock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
