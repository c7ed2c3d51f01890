package models

import "time"

// MaxDayEvents caps the number of distinct bike slots per calendar day.
// The Acroform template has exactly two event blocks per day group.
const MaxDayEvents = 2

// DayEvent is one ride slot of a bikelog day.
type DayEvent struct {
	DistanceKm      float64
	BikeLabel       string
	ElevationGainM  float64
	MovingTimeHours float64
}

// DayEntry aggregates all same-day activities into one bikelog record,
// keyed by julian day of the local start date. Events never exceeds
// MaxDayEvents entries.
type DayEntry struct {
	JulianDay int
	Date      time.Time
	Events    []DayEvent
	Note0     string
	Note1     string
	Weight    float64 // kg, zero when unknown
}

// JulianDay returns the julian day number of the given date, computed
// from the civil calendar fields. The time-of-day and location are
// ignored; callers pass the activity's local start time so that a late
// evening ride lands on the rider's own calendar day.
func JulianDay(t time.Time) int {
	y, m, d := t.Date()
	a := (14 - int(m)) / 12
	yy := y + 4800 - a
	mm := int(m) + 12*a - 3
	return d + (153*mm+2)/5 + 365*yy + yy/4 - yy/100 + yy/400 - 32045
}
