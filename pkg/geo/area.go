package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// RingSignedArea returns the shoelace area of a ring, positive for
// counter-clockwise winding.
func RingSignedArea(r orb.Ring) float64 {
	n := len(r)
	if n < 3 {
		return 0
	}
	area := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += r[i][0] * r[j][1]
		area -= r[j][0] * r[i][1]
	}
	return area / 2
}

// PlanarArea returns the area of the polygonal parts of g in squared
// coordinate units: outer rings minus holes.
func PlanarArea(g orb.Geometry) float64 {
	total := 0.0
	for _, p := range Polygons(g) {
		for i, r := range p {
			a := math.Abs(RingSignedArea(r))
			if i == 0 {
				total += a
			} else {
				total -= a
			}
		}
	}
	return total
}

// AreaM2 returns the geodesic area in square meters of a lon/lat geometry.
func AreaM2(g orb.Geometry) float64 {
	total := 0.0
	for _, p := range Polygons(g) {
		total += math.Abs(orbgeo.Area(p))
	}
	return total
}
