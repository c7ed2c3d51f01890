package track

import (
	"testing"

	"github.com/jpravetz/stravaexport/internal/models"
	"github.com/jpravetz/stravaexport/internal/spatial"
)

func pt(lat, lng float64) models.TrackPoint {
	return models.TrackPoint{Lat: lat, Lng: lng}
}

func TestFilterDedupSingleInteriorDuplicate(t *testing.T) {
	points := []models.TrackPoint{
		pt(1, 1), pt(2, 2), pt(2, 2), pt(2, 2), pt(3, 3),
	}

	out, stats := Filter(points, nil, true)

	// Only index 2 has identical neighbors on both sides.
	if len(out) != 4 {
		t.Fatalf("expected 4 points, got %d", len(out))
	}
	if stats.DedupRemoved != 1 {
		t.Errorf("expected 1 point removed by dedup, got %d", stats.DedupRemoved)
	}
	if !out[0].SameLocation(pt(1, 1)) || !out[3].SameLocation(pt(3, 3)) {
		t.Errorf("endpoints not preserved: %v", out)
	}
}

func TestFilterDedupLongRun(t *testing.T) {
	// A run of 6 identical interior points collapses to exactly 2
	// survivors regardless of run length.
	points := []models.TrackPoint{pt(1, 1)}
	for i := 0; i < 6; i++ {
		points = append(points, pt(2, 2))
	}
	points = append(points, pt(3, 3))

	out, stats := Filter(points, nil, true)

	if len(out) != 4 {
		t.Fatalf("expected 4 points, got %d", len(out))
	}
	if stats.DedupRemoved != 4 {
		t.Errorf("expected 4 points removed, got %d", stats.DedupRemoved)
	}
	if !out[1].SameLocation(pt(2, 2)) || !out[2].SameLocation(pt(2, 2)) {
		t.Errorf("expected run first/last survivors, got %v", out)
	}
}

func TestFilterDedupEndpointsUnconditional(t *testing.T) {
	points := []models.TrackPoint{pt(2, 2), pt(2, 2), pt(2, 2)}

	out, _ := Filter(points, nil, true)

	if len(out) != 2 {
		t.Fatalf("expected endpoints to survive, got %d points", len(out))
	}
}

func TestFilterDedupTooFewPoints(t *testing.T) {
	points := []models.TrackPoint{pt(2, 2), pt(2, 2)}

	out, _ := Filter(points, nil, true)

	if len(out) != 2 {
		t.Fatalf("dedup must not run on fewer than 3 points, got %d", len(out))
	}
}

func TestFilterBlackoutCornerOrder(t *testing.T) {
	points := []models.TrackPoint{pt(1, 1), pt(7, 7), pt(20, 20)}

	zones := []spatial.Zone{spatial.NewZone(10, 10, 5, 5)} // reversed corners
	out, stats := Filter(points, zones, false)

	if len(out) != 2 {
		t.Fatalf("expected blackout to drop (7,7), got %d points", len(out))
	}
	if stats.ZoneRemoved != 1 {
		t.Errorf("expected 1 zone removal, got %d", stats.ZoneRemoved)
	}
	for _, p := range out {
		if p.SameLocation(pt(7, 7)) {
			t.Errorf("point inside zone survived")
		}
	}
}

func TestFilterPure(t *testing.T) {
	points := []models.TrackPoint{pt(1, 1), pt(2, 2), pt(2, 2), pt(2, 2), pt(3, 3)}
	want := make([]models.TrackPoint, len(points))
	copy(want, points)

	Filter(points, []spatial.Zone{spatial.NewZone(0, 0, 10, 10)}, true)

	for i := range points {
		if points[i] != want[i] {
			t.Fatalf("input slice was modified at %d", i)
		}
	}
}

func TestFilterEmptyInput(t *testing.T) {
	out, stats := Filter(nil, nil, true)
	if len(out) != 0 || stats.Input != 0 || stats.Output != 0 {
		t.Errorf("unexpected output for empty input: %v %+v", out, stats)
	}
}
