// Package track cleans raw coordinate streams and locates lap
// boundaries within the cleaned result.
package track

import (
	"github.com/jpravetz/stravaexport/internal/models"
	"github.com/jpravetz/stravaexport/internal/spatial"
)

// FilterStats summarizes one filter run for logging.
type FilterStats struct {
	Input        int
	Output       int
	ZoneRemoved  int
	DedupRemoved int
	InputKm      float64
	OutputKm     float64
}

// Filter removes privacy-sensitive and redundant points from a raw
// coordinate sequence. Blackout removal runs first over the whole
// input; deduplication runs only when dedup is set and at least three
// points remain, and always keeps the first and last point of the
// sequence it scans. Pure: the input slice is never modified.
func Filter(points []models.TrackPoint, zones []spatial.Zone, dedup bool) ([]models.TrackPoint, FilterStats) {
	stats := FilterStats{
		Input:   len(points),
		InputKm: pathKm(points),
	}

	filtered := removeBlackout(points, zones)
	stats.ZoneRemoved = len(points) - len(filtered)

	if dedup && len(filtered) >= 3 {
		before := len(filtered)
		filtered = dedupPoints(filtered)
		stats.DedupRemoved = before - len(filtered)
	}

	stats.Output = len(filtered)
	stats.OutputKm = pathKm(filtered)
	return filtered, stats
}

func removeBlackout(points []models.TrackPoint, zones []spatial.Zone) []models.TrackPoint {
	if len(zones) == 0 {
		out := make([]models.TrackPoint, len(points))
		copy(out, points)
		return out
	}

	out := make([]models.TrackPoint, 0, len(points))
	for _, p := range points {
		if inAnyZone(p, zones) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func inAnyZone(p models.TrackPoint, zones []spatial.Zone) bool {
	for _, z := range zones {
		if z.Contains(p.Lat, p.Lng) {
			return true
		}
	}
	return false
}

// dedupPoints drops every interior point whose coordinates match both
// its immediate predecessor and successor in the scanned array. The
// neighbor test always looks at the array being scanned, never at the
// survivor list, so a run of m identical interior points collapses to
// its own first and last member. Endpoints survive unconditionally.
func dedupPoints(points []models.TrackPoint) []models.TrackPoint {
	out := make([]models.TrackPoint, 0, len(points))
	out = append(out, points[0])
	for i := 1; i < len(points)-1; i++ {
		if points[i].SameLocation(points[i-1]) && points[i].SameLocation(points[i+1]) {
			continue
		}
		out = append(out, points[i])
	}
	out = append(out, points[len(points)-1])
	return out
}

func pathKm(points []models.TrackPoint) float64 {
	if len(points) < 2 {
		return 0
	}
	path := make([]spatial.Point, len(points))
	for i, p := range points {
		path[i] = spatial.Point{Lat: p.Lat, Lng: p.Lng}
	}
	return spatial.PathLength(path) / 1000
}
