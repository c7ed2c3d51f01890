package spatial

import "testing"

func TestZoneCornerOrder(t *testing.T) {
	tests := []struct {
		name string
		zone Zone
	}{
		{"south-west first", NewZone(5, 5, 10, 10)},
		{"north-east first", NewZone(10, 10, 5, 5)},
		{"mixed corners", NewZone(10, 5, 5, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.zone.Contains(7, 7) {
				t.Errorf("expected (7,7) inside zone")
			}
			if tt.zone.Contains(11, 7) {
				t.Errorf("expected (11,7) outside zone")
			}
			if tt.zone.Contains(7, 4.999) {
				t.Errorf("expected (7,4.999) outside zone")
			}
		})
	}
}

func TestZoneEdgeInclusive(t *testing.T) {
	z := NewZone(5, 5, 10, 10)
	if !z.Contains(5, 5) {
		t.Errorf("corner point should be contained")
	}
	if !z.Contains(10, 7) {
		t.Errorf("edge point should be contained")
	}
}

func TestHaversineDistance(t *testing.T) {
	// One degree of latitude is about 111 km.
	d := HaversineDistance(46.0, 7.0, 47.0, 7.0)
	if d < 110000 || d > 112500 {
		t.Errorf("expected ~111km, got %.0fm", d)
	}
}

func TestPathLength(t *testing.T) {
	points := []Point{
		{Lat: 46.0, Lng: 7.0},
		{Lat: 46.001, Lng: 7.0}, // ~111m
		{Lat: 46.002, Lng: 7.0}, // ~111m more
	}

	total := PathLength(points)
	if total < 200 || total > 245 {
		t.Errorf("expected ~222m, got %.0fm", total)
	}

	if PathLength(points[:1]) != 0 {
		t.Errorf("single point path should have zero length")
	}
}
