package geo

import (
	"errors"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/twpayne/go-geos"
)

var errNilGeom = errors.New("nil GEOS geometry")

// BufferSegments is the number of segments per quarter circle used for round
// caps and joins.
const BufferSegments = 16

// toGEOS converts through WKB. go-geos panics on GEOS errors, so callers run
// it inside safely or a Chain step.
func toGEOS(g orb.Geometry) (*geos.Geom, error) {
	if g == nil {
		return nil, errNilGeom
	}
	b, err := wkb.Marshal(g)
	if err != nil {
		return nil, err
	}
	return geos.NewGeomFromWKB(b)
}

func fromGEOS(g *geos.Geom) (orb.Geometry, error) {
	if g == nil {
		return nil, errNilGeom
	}
	if g.IsEmpty() {
		return orb.MultiPolygon{}, nil
	}
	return wkb.Unmarshal(g.ToWKB())
}

// geosOp lifts a binary GEOS operation to orb geometries. The result keeps
// only polygonal parts. It returns nil on any failure.
func geosOp(a, b orb.Geometry, op func(x, y *geos.Geom) *geos.Geom) orb.Geometry {
	out, ok := safely(func() orb.Geometry {
		ga, err := toGEOS(a)
		if err != nil {
			return nil
		}
		gb, err := toGEOS(b)
		if err != nil {
			return nil
		}
		r, err := fromGEOS(op(ga, gb))
		if err != nil {
			return nil
		}
		return Simplest(Polygons(r))
	})
	if !ok {
		return nil
	}
	return out
}

func geosUnary(a orb.Geometry, op func(x *geos.Geom) *geos.Geom) orb.Geometry {
	out, ok := safely(func() orb.Geometry {
		ga, err := toGEOS(a)
		if err != nil {
			return nil
		}
		r, err := fromGEOS(op(ga))
		if err != nil {
			return nil
		}
		return Simplest(Polygons(r))
	})
	if !ok {
		return nil
	}
	return out
}

func unionGEOS(a, b orb.Geometry) orb.Geometry {
	return geosOp(a, b, func(x, y *geos.Geom) *geos.Geom { return x.Union(y) })
}

func differenceGEOS(a, b orb.Geometry) orb.Geometry {
	return geosOp(a, b, func(x, y *geos.Geom) *geos.Geom { return x.Difference(y) })
}

func intersectionGEOS(a, b orb.Geometry) orb.Geometry {
	return geosOp(a, b, func(x, y *geos.Geom) *geos.Geom { return x.Intersection(y) })
}

// Union is the plain GEOS union of two polygonal geometries, nil on failure.
func Union(a, b orb.Geometry) orb.Geometry { return unionGEOS(a, b) }

// Intersection is the plain GEOS intersection, nil on failure.
func Intersection(a, b orb.Geometry) orb.Geometry { return intersectionGEOS(a, b) }

// Intersects is a coarse overlap test. Failures count as no overlap.
func Intersects(a, b orb.Geometry) bool {
	out, ok := safely(func() bool {
		ga, err := toGEOS(a)
		if err != nil {
			return false
		}
		gb, err := toGEOS(b)
		if err != nil {
			return false
		}
		return ga.Intersects(gb)
	})
	return ok && out
}

// Buffer offsets any geometry by d in its own units with round caps. nil on
// failure.
func Buffer(g orb.Geometry, d float64) orb.Geometry {
	return geosUnary(g, func(x *geos.Geom) *geos.Geom { return x.Buffer(d, BufferSegments) })
}

// Repair runs GEOS MakeValid followed by a zero-distance buffer.
func Repair(g orb.Geometry) orb.Geometry {
	return geosUnary(g, func(x *geos.Geom) *geos.Geom {
		if !x.IsValid() {
			x = x.MakeValid()
		}
		return x.Buffer(0, BufferSegments)
	})
}

// SimplifyPreserving is a topology preserving Douglas-Peucker simplification.
func SimplifyPreserving(g orb.Geometry, tolerance float64) orb.Geometry {
	return geosUnary(g, func(x *geos.Geom) *geos.Geom { return x.TopologyPreserveSimplify(tolerance) })
}

// BufferLines buffers a LineString or MultiLineString and returns the
// polygonal result, nil on failure.
func BufferLines(g orb.Geometry, d float64) orb.Geometry {
	switch g.(type) {
	case orb.LineString, orb.MultiLineString:
	default:
		return nil
	}
	return Buffer(g, d)
}
