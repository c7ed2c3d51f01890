package spatial

import (
	"github.com/golang/geo/s2"
)

// Earth radius constants.
const (
	EarthRadiusMeters = 6371000.0
	EarthRadiusKm     = 6371.0
)

// Point is a bare lat/lng pair. Callers project richer point types down
// to this before calling into the spatial helpers.
type Point struct {
	Lat float64
	Lng float64
}

// HaversineDistance calculates the great-circle distance between two
// points in meters.
func HaversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lng1)
	p2 := s2.LatLngFromDegrees(lat2, lng2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// PathLength calculates the total length of a path in meters.
func PathLength(points []Point) float64 {
	if len(points) < 2 {
		return 0
	}

	var total float64
	for i := 1; i < len(points); i++ {
		total += HaversineDistance(points[i-1].Lat, points[i-1].Lng, points[i].Lat, points[i].Lng)
	}

	return total
}
