package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// Projection is the metric working projection: spherical Mercator scaled by
// cos(RefLat), so distances and areas are true near the reference latitude.
type Projection struct {
	RefLat float64
	scale  float64
}

// NewProjection anchors the projection at refLat (degrees).
func NewProjection(refLat float64) Projection {
	s := math.Cos(refLat * math.Pi / 180)
	if s < 1e-6 {
		s = 1e-6
	}
	return Projection{RefLat: refLat, scale: s}
}

// ProjectionFor anchors a projection at the centre latitude of the combined
// bounds of geoms. Nil geometries are ignored; with no input it anchors at
// the equator.
func ProjectionFor(geoms ...orb.Geometry) Projection {
	var b orb.Bound
	found := false
	for _, g := range geoms {
		if g == nil {
			continue
		}
		gb := g.Bound()
		if !found {
			b = gb
			found = true
			continue
		}
		b = b.Union(gb)
	}
	if !found {
		return NewProjection(0)
	}
	return NewProjection(b.Center().Lat())
}

// ToMetric projects a lon/lat point.
func (p Projection) ToMetric(pt orb.Point) orb.Point {
	m := project.WGS84.ToMercator(pt)
	return orb.Point{m[0] * p.factor(), m[1] * p.factor()}
}

// ToWGS84 reverses ToMetric.
func (p Projection) ToWGS84(pt orb.Point) orb.Point {
	return project.Mercator.ToWGS84(orb.Point{pt[0] / p.factor(), pt[1] / p.factor()})
}

// Forward returns a projected copy of g; g itself is left untouched.
func (p Projection) Forward(g orb.Geometry) orb.Geometry {
	if g == nil {
		return nil
	}
	return project.Geometry(orb.Clone(g), p.ToMetric)
}

// Inverse returns a lon/lat copy of a projected geometry.
func (p Projection) Inverse(g orb.Geometry) orb.Geometry {
	if g == nil {
		return nil
	}
	return project.Geometry(orb.Clone(g), p.ToWGS84)
}

func (p Projection) factor() float64 {
	if p.scale == 0 {
		return 1
	}
	return p.scale
}
