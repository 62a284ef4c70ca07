// Package geo holds the geometry utilities shared by the street mask builder
// and the green-area aggregator: ring repair, precision snapping, the metric
// working projection and boolean operations wrapped in fallback chains.
//
// Functions never panic and never return errors for malformed geometry; a nil
// result means "no result available".
package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// DefaultPrecision is the lon/lat snapping precision, about 11 cm.
const DefaultPrecision = 6

// UIDProperty is the feature property holding the per-category sequence id.
const UIDProperty = "_uid"

// ErrNotPolygonal is returned when a Polygon or MultiPolygon was required.
var ErrNotPolygonal = errors.New("geometry is not a Polygon or MultiPolygon")

// Polygons flattens the polygonal parts of g. Lines and points are dropped.
func Polygons(g orb.Geometry) orb.MultiPolygon {
	switch v := g.(type) {
	case orb.Polygon:
		if len(v) == 0 {
			return nil
		}
		return orb.MultiPolygon{v}
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, 0, len(v))
		for _, p := range v {
			if len(p) > 0 {
				out = append(out, p)
			}
		}
		return out
	case orb.Collection:
		var out orb.MultiPolygon
		for _, c := range v {
			out = append(out, Polygons(c)...)
		}
		return out
	}
	return nil
}

// Simplest returns a Polygon when mp has a single member and mp otherwise.
func Simplest(mp orb.MultiPolygon) orb.Geometry {
	if len(mp) == 1 {
		return mp[0]
	}
	if mp == nil {
		return orb.MultiPolygon{}
	}
	return mp
}

// IsPolygonal reports whether g is a Polygon or MultiPolygon.
func IsPolygonal(g orb.Geometry) bool {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return true
	}
	return false
}

// EnsureFeaturePolygon accepts a *geojson.Feature, a geojson.Feature or a bare
// orb.Geometry and returns a polygon feature. MultiPolygon parts are unioned
// one at a time; a part that fails to union is skipped and the running
// result kept.
func EnsureFeaturePolygon(input any) (*geojson.Feature, error) {
	var f *geojson.Feature
	switch v := input.(type) {
	case *geojson.Feature:
		if v == nil {
			return nil, ErrNotPolygonal
		}
		f = v
	case geojson.Feature:
		f = &v
	case orb.Geometry:
		f = geojson.NewFeature(v)
	default:
		return nil, fmt.Errorf("unsupported input %T: %w", input, ErrNotPolygonal)
	}

	switch g := f.Geometry.(type) {
	case orb.Polygon:
		return f, nil
	case orb.MultiPolygon:
		if len(g) == 0 {
			return nil, ErrNotPolygonal
		}
		acc := orb.Geometry(g[0])
		for _, part := range g[1:] {
			if u := unionGEOS(acc, part); u != nil {
				acc = u
			}
		}
		out := geojson.NewFeature(Simplest(Polygons(acc)))
		out.ID = f.ID
		out.Properties = f.Properties.Clone()
		return out, nil
	}
	return nil, fmt.Errorf("%s: %w", typeName(f.Geometry), ErrNotPolygonal)
}

// EnsureClosedPolygon appends the first coordinate to every polygon ring whose
// ends differ. Other geometries are returned unchanged.
func EnsureClosedPolygon(f *geojson.Feature) *geojson.Feature {
	if f == nil || !IsPolygonal(f.Geometry) {
		return f
	}
	out := *f
	out.Geometry = CloseRings(f.Geometry)
	return &out
}

// CloseRings is EnsureClosedPolygon for bare geometries.
func CloseRings(g orb.Geometry) orb.Geometry {
	switch v := g.(type) {
	case orb.Polygon:
		return closePolygon(v)
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(v))
		for i, p := range v {
			out[i] = closePolygon(p)
		}
		return out
	}
	return g
}

func closePolygon(p orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, r := range p {
		ring := append(orb.Ring(nil), r...)
		if len(ring) > 0 && !ring.Closed() {
			ring = append(ring, ring[0])
		}
		out[i] = ring
	}
	return out
}

// SnapWGS rounds coordinates to precision decimals and removes repeated
// consecutive points. On any failure the input is returned unchanged.
func SnapWGS(f *geojson.Feature, precision int) *geojson.Feature {
	if f == nil || f.Geometry == nil {
		return f
	}
	g, ok := safely(func() orb.Geometry {
		return RemoveRepeated(RoundCoords(f.Geometry, precision))
	})
	if !ok || g == nil {
		return f
	}
	out := *f
	out.Geometry = g
	return &out
}

// RoundCoords returns a copy of g with every coordinate rounded to decimals
// places. It is the grid snap used by the clip strategies as well.
func RoundCoords(g orb.Geometry, decimals int) orb.Geometry {
	if g == nil {
		return nil
	}
	ratio := math.Pow(10, float64(decimals))
	return mapPoints(orb.Clone(g), func(p orb.Point) orb.Point {
		return orb.Point{math.Round(p[0]*ratio) / ratio, math.Round(p[1]*ratio) / ratio}
	})
}

// RemoveRepeated drops consecutive duplicate points. Rings that would fall
// under four points and lines under two keep their original coordinates.
func RemoveRepeated(g orb.Geometry) orb.Geometry {
	switch v := g.(type) {
	case orb.LineString:
		return dedupLine(v)
	case orb.MultiLineString:
		out := make(orb.MultiLineString, len(v))
		for i, l := range v {
			out[i] = dedupLine(l)
		}
		return out
	case orb.Ring:
		return dedupRing(v)
	case orb.Polygon:
		return dedupPolygon(v)
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(v))
		for i, p := range v {
			out[i] = dedupPolygon(p)
		}
		return out
	case orb.Collection:
		out := make(orb.Collection, len(v))
		for i, c := range v {
			out[i] = RemoveRepeated(c)
		}
		return out
	}
	return g
}

func dedupPoints(pts []orb.Point) []orb.Point {
	out := make([]orb.Point, 0, len(pts))
	for i, p := range pts {
		if i > 0 && p.Equal(out[len(out)-1]) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func dedupLine(l orb.LineString) orb.LineString {
	out := dedupPoints(l)
	if len(out) < 2 {
		return l
	}
	return orb.LineString(out)
}

func dedupRing(r orb.Ring) orb.Ring {
	out := dedupPoints(r)
	if len(out) < 4 {
		return r
	}
	return orb.Ring(out)
}

func dedupPolygon(p orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, r := range p {
		out[i] = dedupRing(r)
	}
	return out
}

// Rewind orients outer rings clockwise and holes counter-clockwise.
func Rewind(g orb.Geometry) orb.Geometry {
	switch v := g.(type) {
	case orb.Polygon:
		return rewindPolygon(v)
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(v))
		for i, p := range v {
			out[i] = rewindPolygon(p)
		}
		return out
	}
	return g
}

func rewindPolygon(p orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, r := range p {
		ring := append(orb.Ring(nil), r...)
		want := orb.CW
		if i > 0 {
			want = orb.CCW
		}
		if ring.Orientation() != want && ring.Orientation() != 0 {
			ring.Reverse()
		}
		out[i] = ring
	}
	return out
}

func mapPoints(g orb.Geometry, fn func(orb.Point) orb.Point) orb.Geometry {
	switch v := g.(type) {
	case orb.Point:
		return fn(v)
	case orb.MultiPoint:
		for i := range v {
			v[i] = fn(v[i])
		}
		return v
	case orb.LineString:
		for i := range v {
			v[i] = fn(v[i])
		}
		return v
	case orb.MultiLineString:
		for _, l := range v {
			mapPoints(l, fn)
		}
		return v
	case orb.Ring:
		for i := range v {
			v[i] = fn(v[i])
		}
		return v
	case orb.Polygon:
		for _, r := range v {
			mapPoints(r, fn)
		}
		return v
	case orb.MultiPolygon:
		for _, p := range v {
			mapPoints(p, fn)
		}
		return v
	case orb.Collection:
		for i := range v {
			v[i] = mapPoints(v[i], fn)
		}
		return v
	}
	return g
}

func typeName(g orb.Geometry) string {
	if g == nil {
		return "nil geometry"
	}
	return g.GeoJSONType()
}
