package models

import "time"

// ActivityType is the Strava sport type of an activity.
type ActivityType string

const (
	Ride           ActivityType = "Ride"
	Run            ActivityType = "Run"
	Hike           ActivityType = "Hike"
	Walk           ActivityType = "Walk"
	EBikeRide      ActivityType = "EBikeRide"
	VirtualRide    ActivityType = "VirtualRide"
	Workout        ActivityType = "Workout"
	Yoga           ActivityType = "Yoga"
	WeightTraining ActivityType = "WeightTraining"
)

// IsRide reports whether the activity type counts as a bicycle ride.
// EBikeRide is a ride for export purposes but is excluded from bikelog
// event slots by the aggregator.
func (t ActivityType) IsRide() bool {
	switch t {
	case Ride, EBikeRide, VirtualRide:
		return true
	}
	return false
}

// Activity is the summary variant returned by the activity list endpoint.
// It carries everything the exporters need except laps and segment efforts,
// which exist only on DetailedActivity.
type Activity struct {
	ID                 int64
	Name               string
	Type               ActivityType
	StartTime          time.Time // absolute (UTC)
	StartTimeLocal     time.Time // timezone-local wall clock
	MovingTime         int       // seconds
	ElapsedTime        int       // seconds
	Distance           float64   // metres
	TotalElevationGain float64   // metres
	Commute            bool
	GearID             string

	// Coordinates is populated by the stream fetch phase and filtered in
	// place of the raw stream. Once filtered it is the only valid basis
	// for index lookups.
	Coordinates []TrackPoint
}

// DetailedActivity is the heavyweight variant fetched per activity.
// Laps and SegmentEfforts must never be read off a summary Activity;
// the type split makes that a compile-time property.
type DetailedActivity struct {
	Activity
	Laps           []Lap
	SegmentEfforts []SegmentEffort
}

// Lap is one lap of a detailed activity, ordered by occurrence.
// StartIndex refers to the original unfiltered coordinate stream and is
// stale after filtering; lap boundaries are located by time correlation
// instead.
type Lap struct {
	Index       int
	StartIndex  int
	ElapsedTime int     // seconds
	Distance    float64 // metres
}
