package geo

import (
	"fmt"
	"math"

	polyclip "github.com/ctessum/polyclip-go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// DifferenceOffsets are the buffer distances (meters) applied to the
// subtrahend when the direct difference fails. The sequence is empirical.
var DifferenceOffsets = []float64{0, 0.02, -0.02, 0.05, -0.05, 0.1, -0.1, 0.2, -0.2, 0.5, -0.5, 1, -1, 2, -2}

// MetricSimplifyTolerance is the simplification applied after the
// zero-distance repair buffer in ToMetricPolySafe, in meters.
const MetricSimplifyTolerance = 0.05

// ToMetricPolySafe normalizes a lon/lat polygon (ring closure, precision,
// winding), projects it, repairs it with a zero-distance buffer and
// simplifies it. It returns nil for non-polygonal or unrepairable input.
func ToMetricPolySafe(g orb.Geometry, p Projection) orb.Geometry {
	if !IsPolygonal(g) {
		return nil
	}
	norm := Rewind(RemoveRepeated(RoundCoords(CloseRings(g), DefaultPrecision)))
	metric := p.Forward(norm)

	repaired := Repair(metric)
	if repaired == nil {
		// GEOS could not even read it; keep the raw projection.
		return metric
	}
	if s := SimplifyPreserving(repaired, MetricSimplifyTolerance); s != nil && PlanarArea(s) > 0 {
		return s
	}
	return repaired
}

// booleanOps are the engines the fallback chains call.
type booleanOps struct {
	difference func(a, b orb.Geometry) orb.Geometry
	union      func(a, b orb.Geometry) orb.Geometry
	buffer     func(g orb.Geometry, d float64) orb.Geometry
	sweep      func(a, b orb.Geometry, op polyclip.Op) orb.Geometry
}

var defaultOps = booleanOps{
	difference: differenceGEOS,
	union:      unionGEOS,
	buffer:     Buffer,
	sweep:      sweepOp,
}

// UnionCutsMetric unions projected cut polygons. The sweep-line engine runs
// first; pairwise GEOS union is the fallback. Returns nil for an empty list.
func UnionCutsMetric(list []orb.Geometry) orb.Geometry {
	out, _ := unionCuts(defaultOps, list)
	return out
}

func unionCuts(ops booleanOps, list []orb.Geometry) (orb.Geometry, string) {
	var polys []orb.Geometry
	for _, g := range list {
		if len(Polygons(g)) > 0 {
			polys = append(polys, g)
		}
	}
	if len(polys) == 0 {
		return nil, ""
	}

	out, step, ok := Chain[orb.Geometry]{
		Name: "union_cuts",
		Steps: []Step[orb.Geometry]{
			{Name: "scanline", Run: func() (orb.Geometry, bool) {
				acc := polys[0]
				for _, g := range polys[1:] {
					acc = ops.sweep(acc, g, polyclip.UNION)
				}
				return acc, len(Polygons(acc)) > 0
			}},
			{Name: "pairwise", Run: func() (orb.Geometry, bool) {
				acc := polys[0]
				for _, g := range polys[1:] {
					if u := ops.union(acc, g); u != nil {
						acc = u
					}
				}
				return acc, true
			}},
		},
	}.Run()
	if !ok {
		return nil, ""
	}
	return out, step
}

// UnionAll folds geometries with pairwise GEOS union. When a single union
// fails the operands are concatenated into a MultiPolygon so no input is
// dropped. Returns nil for an empty list.
func UnionAll(list []orb.Geometry) orb.Geometry {
	var acc orb.Geometry
	for _, g := range list {
		if len(Polygons(g)) == 0 {
			continue
		}
		if acc == nil {
			acc = g
			continue
		}
		if u := unionGEOS(acc, g); u != nil {
			acc = u
			continue
		}
		acc = append(append(orb.MultiPolygon{}, Polygons(acc)...), Polygons(g)...)
	}
	return acc
}

// DifferenceSafe subtracts b from a. A nil b returns a itself. The direct
// difference is tried first, then b nudged by each DifferenceOffsets value,
// then the sweep-line difference. nil only when every strategy fails.
func DifferenceSafe(a, b orb.Geometry) orb.Geometry {
	out, _ := differenceSafe(defaultOps, a, b)
	return out
}

func differenceSafe(ops booleanOps, a, b orb.Geometry) (orb.Geometry, string) {
	if b == nil {
		return a, ""
	}
	if a == nil {
		return nil, ""
	}

	steps := []Step[orb.Geometry]{
		{Name: "direct", Run: func() (orb.Geometry, bool) {
			r := ops.difference(a, b)
			return r, r != nil
		}},
	}
	for _, d := range DifferenceOffsets {
		d := d
		steps = append(steps, Step[orb.Geometry]{
			Name: fmt.Sprintf("offset%+g", d),
			Run: func() (orb.Geometry, bool) {
				nb := ops.buffer(b, d)
				if nb == nil {
					return nil, false
				}
				r := ops.difference(a, nb)
				return r, r != nil
			},
		})
	}
	steps = append(steps, Step[orb.Geometry]{Name: "scanline", Run: func() (orb.Geometry, bool) {
		r := ops.sweep(a, b, polyclip.DIFFERENCE)
		return r, r != nil
	}})

	out, step, ok := Chain[orb.Geometry]{Name: "difference", Steps: steps}.Run()
	if !ok {
		return nil, ""
	}
	return out, step
}

func sweepOp(a, b orb.Geometry, op polyclip.Op) orb.Geometry {
	return fromPolyclip(toPolyclip(a).Construct(op, toPolyclip(b)))
}

func toPolyclip(g orb.Geometry) polyclip.Polygon {
	var out polyclip.Polygon
	for _, p := range Polygons(g) {
		for _, r := range p {
			n := len(r)
			if n > 1 && r.Closed() {
				n--
			}
			if n < 3 {
				continue
			}
			c := make(polyclip.Contour, n)
			for i := 0; i < n; i++ {
				c[i] = polyclip.Point{X: r[i][0], Y: r[i][1]}
			}
			out = append(out, c)
		}
	}
	return out
}

// fromPolyclip rebuilds polygons from sweep-line contours, which carry no
// outer/hole distinction: a contour nested at odd depth is a hole of the
// smallest even-depth contour containing it.
func fromPolyclip(p polyclip.Polygon) orb.Geometry {
	rings := make([]orb.Ring, 0, len(p))
	for _, c := range p {
		if len(c) < 3 {
			continue
		}
		r := make(orb.Ring, 0, len(c)+1)
		for _, pt := range c {
			r = append(r, orb.Point{pt.X, pt.Y})
		}
		r = append(r, r[0])
		rings = append(rings, r)
	}
	if len(rings) == 0 {
		return orb.MultiPolygon{}
	}

	depth := make([]int, len(rings))
	parent := make([]int, len(rings))
	for i := range rings {
		parent[i] = -1
		for j := range rings {
			if i == j || !ringInside(rings[i], rings[j]) {
				continue
			}
			depth[i]++
			if parent[i] < 0 || PlanarArea(orb.Polygon{rings[j]}) < PlanarArea(orb.Polygon{rings[parent[i]]}) {
				parent[i] = j
			}
		}
	}

	index := make(map[int]int)
	var mp orb.MultiPolygon
	for i, r := range rings {
		if depth[i]%2 == 0 {
			index[i] = len(mp)
			mp = append(mp, orb.Polygon{r})
		}
	}
	for i, r := range rings {
		if depth[i]%2 == 1 && parent[i] >= 0 {
			if k, ok := index[parent[i]]; ok {
				mp[k] = append(mp[k], r)
			}
		}
	}
	return Simplest(mp)
}

// ringInside reports whether ring a lies inside ring b. Sweep-line contours
// never cross, so the first vertex of a that is off b's boundary decides.
// Vertices touching b are skipped, since RingContains counts the boundary as
// inside.
func ringInside(a, b orb.Ring) bool {
	for _, pt := range a {
		if onRing(b, pt) {
			continue
		}
		return planar.RingContains(b, pt)
	}
	return false
}

func onRing(r orb.Ring, pt orb.Point) bool {
	const eps = 1e-9
	for i := 0; i+1 < len(r); i++ {
		a, b := r[i], r[i+1]
		cross := (b[0]-a[0])*(pt[1]-a[1]) - (b[1]-a[1])*(pt[0]-a[0])
		scale := math.Max(1, math.Hypot(b[0]-a[0], b[1]-a[1]))
		if math.Abs(cross) > eps*scale {
			continue
		}
		if pt[0] >= math.Min(a[0], b[0])-eps && pt[0] <= math.Max(a[0], b[0])+eps &&
			pt[1] >= math.Min(a[1], b[1])-eps && pt[1] <= math.Max(a[1], b[1])+eps {
			return true
		}
	}
	return false
}
