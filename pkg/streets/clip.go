package streets

import (
	"encoding/json"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	sfgeom "github.com/peterstace/simplefeatures/geom"
	"go.uber.org/zap"

	"github.com/flavioborgesnunes/loteamento-frontend-sub000/internal/logger"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/geo"
)

const (
	// MaskEpsilon is the area, in square meters, at or below which a clip
	// result is degenerate.
	MaskEpsilon = 1e-9

	// GridDecimals is the snapping grid of the robust strategy, in decimals
	// of a meter.
	GridDecimals = 1

	// StubbornGridDecimals is the coarser grid used by the teimoso retry.
	StubbornGridDecimals = 0
)

// ClipInput carries both operands in both coordinate systems.
type ClipInput struct {
	Mask      orb.Geometry // metric
	AOI       orb.Geometry // metric
	MaskWGS84 orb.Geometry
	AOIWGS84  orb.Geometry
	Proj      geo.Projection
}

// ClipStrategy returns a metric clip of the mask to the AOI, or nil.
type ClipStrategy struct {
	Name string
	Clip func(in ClipInput) orb.Geometry
}

// DefaultStrategies is the order in which clipping is attempted.
var DefaultStrategies = []ClipStrategy{
	{Name: "robust-grid", Clip: robustGrid},
	{Name: "teimoso", Clip: stubborn},
	{Name: "planar", Clip: planarNoProjection},
	{Name: "direct", Clip: direct},
}

// ClipMaskToAOI clips a metric mask to a lon/lat AOI. Without an AOI the mask
// is returned as is. It returns nil when every strategy is degenerate.
func ClipMaskToAOI(mask, aoi orb.Geometry, p geo.Projection) orb.Geometry {
	out, _ := Clip(mask, aoi, p, DefaultStrategies)
	return out
}

// Clip runs strategies in order and returns the first non-degenerate result
// with the name of the strategy that produced it.
func Clip(mask, aoi orb.Geometry, p geo.Projection, strategies []ClipStrategy) (orb.Geometry, string) {
	if aoi == nil {
		return mask, ""
	}
	if mask == nil {
		return nil, ""
	}

	aoiClosed := geo.CloseRings(aoi)
	in := ClipInput{
		Mask:      mask,
		AOI:       p.Forward(aoiClosed),
		MaskWGS84: p.Inverse(mask),
		AOIWGS84:  aoiClosed,
		Proj:      p,
	}

	steps := make([]geo.Step[orb.Geometry], 0, len(strategies))
	for _, s := range strategies {
		s := s
		steps = append(steps, geo.Step[orb.Geometry]{
			Name: s.Name,
			Run: func() (orb.Geometry, bool) {
				r := s.Clip(in)
				return r, r != nil
			},
		})
	}

	out, name, ok := geo.Chain[orb.Geometry]{
		Name:   "aoi_clip",
		Steps:  steps,
		Accept: NonDegenerate,
	}.Run()
	if !ok {
		logger.Get().Debug("mask clip degenerate for every strategy")
		return nil, ""
	}
	logger.Get().Debug("mask clipped", zap.String("strategy", name), zap.Float64("area_m2", geo.PlanarArea(out)))
	return out, name
}

// NonDegenerate reports whether g is polygonal with area above MaskEpsilon.
func NonDegenerate(g orb.Geometry) bool {
	return g != nil && geo.PlanarArea(g) > MaskEpsilon
}

func robustGrid(in ClipInput) orb.Geometry {
	return geo.Intersection(
		geo.RoundCoords(in.Mask, GridDecimals),
		geo.RoundCoords(in.AOI, GridDecimals),
	)
}

// stubborn only runs when a coarse test says the shapes overlap. Both
// operands are repaired before the coarser snap.
func stubborn(in ClipInput) orb.Geometry {
	if !geo.Intersects(in.Mask, in.AOI) {
		return nil
	}
	m := geo.Repair(in.Mask)
	a := geo.Repair(in.AOI)
	if m == nil || a == nil {
		return nil
	}
	return geo.Intersection(
		geo.RoundCoords(m, StubbornGridDecimals),
		geo.RoundCoords(a, StubbornGridDecimals),
	)
}

// planarNoProjection intersects the lon/lat operands with the simplefeatures
// engine and projects only the result.
func planarNoProjection(in ClipInput) orb.Geometry {
	a, err := toSimpleFeatures(in.MaskWGS84)
	if err != nil {
		return nil
	}
	b, err := toSimpleFeatures(in.AOIWGS84)
	if err != nil {
		return nil
	}
	r, err := sfgeom.Intersection(a, b)
	if err != nil {
		return nil
	}
	g, err := fromSimpleFeatures(r)
	if err != nil {
		return nil
	}
	return in.Proj.Forward(geo.Simplest(geo.Polygons(g)))
}

func direct(in ClipInput) orb.Geometry {
	r := geo.Intersection(in.Mask, in.AOI)
	if r == nil {
		return nil
	}
	return geo.RemoveRepeated(r)
}

func toSimpleFeatures(g orb.Geometry) (sfgeom.Geometry, error) {
	b, err := json.Marshal(geojson.NewGeometry(g))
	if err != nil {
		return sfgeom.Geometry{}, err
	}
	return sfgeom.UnmarshalGeoJSON(b)
}

func fromSimpleFeatures(g sfgeom.Geometry) (orb.Geometry, error) {
	b, err := g.MarshalJSON()
	if err != nil {
		return nil, err
	}
	gj, err := geojson.UnmarshalGeometry(b)
	if err != nil {
		return nil, err
	}
	return gj.Geometry(), nil
}
