package spatial

import (
	"github.com/golang/geo/r2"
)

// Zone is a blackout rectangle: an axis-aligned lat/lng region whose
// enclosed track points are removed before export. The rectangle is
// normalized on construction, so the two corners may be given in any
// diagonal order.
type Zone struct {
	rect r2.Rect
}

// NewZone builds a blackout zone from two opposite corners.
func NewZone(latA, lngA, latB, lngB float64) Zone {
	return Zone{
		rect: r2.RectFromPoints(
			r2.Point{X: latA, Y: lngA},
			r2.Point{X: latB, Y: lngB},
		),
	}
}

// Contains reports whether the point lies inside the zone. Bounds are
// inclusive: points exactly on an edge are considered contained.
func (z Zone) Contains(lat, lng float64) bool {
	return z.rect.ContainsPoint(r2.Point{X: lat, Y: lng})
}

// Bounds returns the normalized (minLat, minLng, maxLat, maxLng).
func (z Zone) Bounds() (float64, float64, float64, float64) {
	return z.rect.X.Lo, z.rect.Y.Lo, z.rect.X.Hi, z.rect.Y.Hi
}
