// Package streets turns street centerlines into the no-build street mask:
// each line is buffered by half its width in the metric working projection,
// the buffers are unioned, and the union is clipped to the AOI through an
// ordered chain of clipping strategies.
package streets

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/flavioborgesnunes/loteamento-frontend-sub000/internal/logger"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/geo"
)

// WidthProperty is the feature property holding the full street width.
const WidthProperty = "width_m"

// BufferStreet buffers a lon/lat LineString or MultiLineString by
// halfWidthM meters with round caps. The result is in the metric projection
// p. It returns nil when the input has no usable line or buffering fails.
func BufferStreet(f *geojson.Feature, halfWidthM float64, p geo.Projection) orb.Geometry {
	if f == nil || !(halfWidthM > 0) || math.IsInf(halfWidthM, 0) {
		return nil
	}
	line := usableLines(f.Geometry)
	if line == nil {
		return nil
	}

	buf := geo.BufferLines(p.Forward(line), halfWidthM)
	if buf == nil || geo.PlanarArea(buf) <= 0 {
		logger.Get().Debug("street buffer failed", zap.Any("id", f.ID), zap.Float64("half_width_m", halfWidthM))
		return nil
	}
	return geo.RemoveRepeated(buf)
}

// usableLines cleans the coordinates of a line geometry and drops parts with
// fewer than two distinct points.
func usableLines(g orb.Geometry) orb.Geometry {
	switch v := g.(type) {
	case orb.LineString:
		if l, ok := cleanLine(v); ok {
			return l
		}
	case orb.MultiLineString:
		var out orb.MultiLineString
		for _, part := range v {
			if l, ok := cleanLine(part); ok {
				out = append(out, l)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func cleanLine(l orb.LineString) (orb.LineString, bool) {
	c := geo.RemoveRepeated(l).(orb.LineString)
	for i := 1; i < len(c); i++ {
		if !c[i].Equal(c[0]) {
			return c, true
		}
	}
	return nil, false
}

// WidthOf returns the street's width_m property, or def when it is absent or
// unreadable.
func WidthOf(f *geojson.Feature, def float64) float64 {
	if f == nil || f.Properties == nil {
		return def
	}
	switch v := f.Properties[WidthProperty].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		if w, err := v.Float64(); err == nil {
			return w
		}
	case string:
		if w, err := strconv.ParseFloat(v, 64); err == nil {
			return w
		}
	}
	return def
}
