package models

// TrackPoint represents one GPS sample in an activity's coordinate stream.
// Time is the offset in seconds from the activity start; HasTime/HasAltitude
// record whether the upstream stream carried those channels, since a zero
// offset or sea-level altitude is a legal value.
type TrackPoint struct {
	Lat         float64
	Lng         float64
	Altitude    float64 // metres
	Time        float64 // seconds since activity start
	HasAltitude bool
	HasTime     bool
}

// SameLocation reports whether two points share identical coordinates.
// Altitude and time are ignored; deduplication is positional only.
func (p TrackPoint) SameLocation(q TrackPoint) bool {
	return p.Lat == q.Lat && p.Lng == q.Lng
}
