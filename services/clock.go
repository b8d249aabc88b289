package services

import "time"

// Clock is injected into the progression core so streak and timestamp logic
// stays deterministic in tests. All day arithmetic happens on platform-UTC
// calendar days, never per-user timezones.
type Clock interface {
	Now() time.Time
	Today() time.Time
}

type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }

func (utcClock) Today() time.Time { return Day(time.Now().UTC()) }

// NewClock returns the production clock (wall time, UTC).
func NewClock() Clock { return utcClock{} }

// Day truncates a timestamp to its UTC calendar day.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
