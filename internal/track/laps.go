package track

import (
	"fmt"
	"math"
	"strings"

	"github.com/jpravetz/stravaexport/internal/models"
)

// LapWaypoint marks the point in a filtered track nearest to a lap
// boundary. The final lap of an activity never yields a waypoint.
type LapWaypoint struct {
	Name        string
	Lat         float64
	Lng         float64
	Elevation   float64
	HasAltitude bool
	Time        float64 // cumulative seconds from activity start
	Description string
}

// CorrelateLaps maps lap boundaries onto an already-filtered coordinate
// sequence by accumulated elapsed time. The API's own startIndex and
// cumulative fields reference the unfiltered stream and are never used.
// When no point carries a time offset, the boundary falls back to a
// position estimate proportional to elapsed time.
func CorrelateLaps(laps []models.Lap, coords []models.TrackPoint, activityElapsed int) []LapWaypoint {
	if len(laps) < 2 || len(coords) == 0 {
		return nil
	}

	timed := false
	for _, p := range coords {
		if p.HasTime {
			timed = true
			break
		}
	}

	waypoints := make([]LapWaypoint, 0, len(laps)-1)
	var cumulative float64
	var prevElev float64
	var prevElevKnown bool

	// The last lap is the finishing lap; its boundary is the activity end.
	for i := 0; i < len(laps)-1; i++ {
		lap := laps[i]
		cumulative += float64(lap.ElapsedTime)

		var idx int
		if timed {
			idx = closestByTime(coords, cumulative)
		} else {
			idx = estimateIndex(cumulative, activityElapsed, len(coords))
		}
		pt := coords[idx]

		wp := LapWaypoint{
			Name:        lapName(lap, i),
			Lat:         pt.Lat,
			Lng:         pt.Lng,
			Elevation:   pt.Altitude,
			HasAltitude: pt.HasAltitude,
			Time:        cumulative,
		}

		var lines []string
		lines = append(lines, fmt.Sprintf("%.2f km", lap.Distance/1000))
		if wp.HasAltitude {
			lines = append(lines, fmt.Sprintf("%.0f m", wp.Elevation))
			if prevElevKnown {
				delta := wp.Elevation - prevElev
				lines = append(lines, fmt.Sprintf("%+.0f m", delta))
				if lap.Distance > 0 {
					lines = append(lines, fmt.Sprintf("%.1f%%", delta/lap.Distance*100))
				}
			}
			prevElev = wp.Elevation
			prevElevKnown = true
		}
		wp.Description = strings.Join(lines, "\n")

		waypoints = append(waypoints, wp)
	}

	return waypoints
}

// closestByTime returns the index of the point whose time offset is
// numerically closest to target, preferring the first occurrence on ties.
func closestByTime(coords []models.TrackPoint, target float64) int {
	best := 0
	bestDiff := math.Inf(1)
	for i, p := range coords {
		if !p.HasTime {
			continue
		}
		diff := math.Abs(p.Time - target)
		if diff < bestDiff {
			bestDiff = diff
			best = i
		}
	}
	return best
}

// estimateIndex places a boundary proportionally into the coordinate
// array when the stream carries no time channel.
func estimateIndex(cumulative float64, elapsed, n int) int {
	if elapsed <= 0 {
		return 0
	}
	idx := int(math.Floor(cumulative / float64(elapsed) * float64(n)))
	if idx > n-1 {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

func lapName(lap models.Lap, pos int) string {
	n := lap.Index
	if n == 0 {
		n = pos + 1
	}
	return fmt.Sprintf("Lap %d", n)
}
