package models

// SegmentEffort is a raw effort as returned on a detailed activity.
type SegmentEffort struct {
	ID          int64
	ElapsedTime int // seconds
	MovingTime  int // seconds
	Distance    float64
	Segment     EffortSegment
}

// EffortSegment is the segment summary nested in a raw effort.
type EffortSegment struct {
	ID   int64
	Name string
}

// AttachedEffort is the read-only projection of an effort that survived
// the starred-segment filter. It is always produced fresh by the
// attacher and never aliases the raw effort.
type AttachedEffort struct {
	SegmentID   int64
	Name        string
	ElapsedTime int // seconds
	MovingTime  int // seconds
	Distance    float64
}

// StarredSegment is one row of the persisted starred-segment cache.
type StarredSegment struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Distance      float64 `json:"distance"`
	AverageGrade  float64 `json:"averageGrade"`
	ElevationGain float64 `json:"elevationGain"`
	Country       string  `json:"country"`
	State         string  `json:"state"`
}
