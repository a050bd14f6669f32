package session

import "time"

// DayKeyLayout is the YYYY-MM-DD layout of a DayKey.
const DayKeyLayout = time.DateOnly

// DayKey identifies the calendar day a state belongs to.
type DayKey string

// DayKeyOf returns the calendar day of t in loc.
func DayKeyOf(t time.Time, loc *time.Location) DayKey {
	if loc == nil {
		loc = time.Local
	}
	return DayKey(t.In(loc).Format(DayKeyLayout))
}

// Before reports whether d is an earlier day than other.
// YYYY-MM-DD keys order lexically.
func (d DayKey) Before(other DayKey) bool {
	return d < other
}

func (d DayKey) String() string { return string(d) }
