package track

import (
	"strings"
	"testing"

	"github.com/jpravetz/stravaexport/internal/models"
)

func timedPoint(lat, lng, sec, alt float64) models.TrackPoint {
	return models.TrackPoint{Lat: lat, Lng: lng, Time: sec, HasTime: true, Altitude: alt, HasAltitude: true}
}

func TestCorrelateLapsSkipsFinalLap(t *testing.T) {
	coords := []models.TrackPoint{
		timedPoint(1, 1, 0, 100),
		timedPoint(2, 2, 60, 110),
		timedPoint(3, 3, 120, 130),
	}
	laps := []models.Lap{
		{Index: 1, ElapsedTime: 60, Distance: 1000},
		{Index: 2, ElapsedTime: 60, Distance: 1200},
	}

	wps := CorrelateLaps(laps, coords, 120)

	if len(wps) != 1 {
		t.Fatalf("expected 1 waypoint for 2 laps, got %d", len(wps))
	}
	if wps[0].Name != "Lap 1" {
		t.Errorf("unexpected waypoint name %q", wps[0].Name)
	}
}

func TestCorrelateLapsSingleLap(t *testing.T) {
	coords := []models.TrackPoint{timedPoint(1, 1, 0, 0)}
	laps := []models.Lap{{Index: 1, ElapsedTime: 60}}

	if wps := CorrelateLaps(laps, coords, 60); wps != nil {
		t.Errorf("single-lap activity must produce no waypoints, got %v", wps)
	}
}

func TestCorrelateLapsClosestTime(t *testing.T) {
	// Boundary at t=100 sits between samples at 90 and 105; 105 wins.
	coords := []models.TrackPoint{
		timedPoint(1, 1, 0, 0),
		timedPoint(2, 2, 90, 0),
		timedPoint(3, 3, 105, 0),
		timedPoint(4, 4, 200, 0),
	}
	laps := []models.Lap{
		{Index: 1, ElapsedTime: 100, Distance: 2000},
		{Index: 2, ElapsedTime: 100, Distance: 2000},
	}

	wps := CorrelateLaps(laps, coords, 200)

	if wps[0].Lat != 3 {
		t.Errorf("expected boundary at sample t=105, got lat %v", wps[0].Lat)
	}
}

func TestCorrelateLapsTieBreakFirst(t *testing.T) {
	// Two samples equally close to t=10; the earlier one wins.
	coords := []models.TrackPoint{
		timedPoint(1, 1, 5, 0),
		timedPoint(2, 2, 15, 0),
		timedPoint(3, 3, 30, 0),
	}
	laps := []models.Lap{
		{Index: 1, ElapsedTime: 10, Distance: 100},
		{Index: 2, ElapsedTime: 20, Distance: 100},
	}

	wps := CorrelateLaps(laps, coords, 30)

	if wps[0].Lat != 1 {
		t.Errorf("tie must break to first occurrence, got lat %v", wps[0].Lat)
	}
}

func TestCorrelateLapsIndexFallback(t *testing.T) {
	// No time channel: the boundary is estimated proportionally.
	coords := make([]models.TrackPoint, 10)
	for i := range coords {
		coords[i] = models.TrackPoint{Lat: float64(i), Lng: float64(i)}
	}
	laps := []models.Lap{
		{Index: 1, ElapsedTime: 50, Distance: 1000},
		{Index: 2, ElapsedTime: 50, Distance: 1000},
	}

	wps := CorrelateLaps(laps, coords, 100)

	// floor(50/100 * 10) = 5
	if wps[0].Lat != 5 {
		t.Errorf("expected estimated index 5, got lat %v", wps[0].Lat)
	}
}

func TestCorrelateLapsFallbackClamped(t *testing.T) {
	coords := make([]models.TrackPoint, 4)
	for i := range coords {
		coords[i] = models.TrackPoint{Lat: float64(i)}
	}
	laps := []models.Lap{
		{Index: 1, ElapsedTime: 100, Distance: 1000},
		{Index: 2, ElapsedTime: 1, Distance: 10},
	}

	// Cumulative time equals the whole elapsed time, which would index
	// one past the end without clamping.
	wps := CorrelateLaps(laps, coords, 100)

	if wps[0].Lat != 3 {
		t.Errorf("expected clamp to last index, got lat %v", wps[0].Lat)
	}
}

func TestCorrelateLapsDescription(t *testing.T) {
	coords := []models.TrackPoint{
		timedPoint(1, 1, 0, 100),
		timedPoint(2, 2, 60, 150),
		timedPoint(3, 3, 120, 180),
		timedPoint(4, 4, 180, 170),
	}
	laps := []models.Lap{
		{Index: 1, ElapsedTime: 60, Distance: 1530},
		{Index: 2, ElapsedTime: 60, Distance: 1000},
		{Index: 3, ElapsedTime: 60, Distance: 900},
	}

	wps := CorrelateLaps(laps, coords, 180)
	if len(wps) != 2 {
		t.Fatalf("expected 2 waypoints, got %d", len(wps))
	}

	if !strings.Contains(wps[0].Description, "1.53 km") {
		t.Errorf("first description missing lap distance: %q", wps[0].Description)
	}
	if strings.Contains(wps[0].Description, "+") {
		t.Errorf("first waypoint must omit the elevation delta: %q", wps[0].Description)
	}
	if !strings.Contains(wps[1].Description, "+30 m") {
		t.Errorf("second description missing elevation delta: %q", wps[1].Description)
	}
	if !strings.Contains(wps[1].Description, "3.0%") {
		t.Errorf("second description missing gradient: %q", wps[1].Description)
	}
}

func TestCorrelateLapsZeroDistanceOmitsGradient(t *testing.T) {
	coords := []models.TrackPoint{
		timedPoint(1, 1, 0, 100),
		timedPoint(2, 2, 60, 150),
		timedPoint(3, 3, 120, 160),
	}
	laps := []models.Lap{
		{Index: 1, ElapsedTime: 60, Distance: 1000},
		{Index: 2, ElapsedTime: 60, Distance: 0},
		{Index: 3, ElapsedTime: 60, Distance: 0},
	}

	wps := CorrelateLaps(laps, coords, 180)

	if strings.Contains(wps[1].Description, "%") {
		t.Errorf("zero-distance lap must omit gradient: %q", wps[1].Description)
	}
}
