package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// ExtendLine moves both ends of a lon/lat line outward along their terminal
// segments by meters. Lines with fewer than two distinct points, or a
// non-positive distance, are returned unchanged.
func ExtendLine(l orb.LineString, meters float64, p Projection) orb.LineString {
	l = dedupLine(l)
	if len(l) < 2 || meters <= 0 || math.IsNaN(meters) || math.IsInf(meters, 0) {
		return l
	}
	m := p.Forward(l).(orb.LineString)
	n := len(m)
	m[0] = extendPoint(m[1], m[0], meters)
	m[n-1] = extendPoint(m[n-2], m[n-1], meters)
	return p.Inverse(m).(orb.LineString)
}

// ExtendLines applies ExtendLine to a LineString or every part of a
// MultiLineString. Other geometries pass through.
func ExtendLines(g orb.Geometry, meters float64, p Projection) orb.Geometry {
	switch v := g.(type) {
	case orb.LineString:
		return ExtendLine(v, meters, p)
	case orb.MultiLineString:
		out := make(orb.MultiLineString, len(v))
		for i, l := range v {
			out[i] = ExtendLine(l, meters, p)
		}
		return out
	}
	return g
}

// extendPoint returns to moved d further away from from.
func extendPoint(from, to orb.Point, d float64) orb.Point {
	dx, dy := to[0]-from[0], to[1]-from[1]
	l := math.Hypot(dx, dy)
	if l < 1e-12 {
		return to
	}
	return orb.Point{to[0] + dx/l*d, to[1] + dy/l*d}
}

// LineLength returns the planar length of a projected line.
func LineLength(l orb.LineString) float64 {
	total := 0.0
	for i := 1; i < len(l); i++ {
		total += math.Hypot(l[i][0]-l[i-1][0], l[i][1]-l[i-1][1])
	}
	return total
}
