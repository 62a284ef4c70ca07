package greenarea

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/flavioborgesnunes/loteamento-frontend-sub000/internal/logger"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/internal/metrics"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/geo"
)

// PercentTolerance is the slack allowed above the permitted cut percentage.
const PercentTolerance = 1e-6

// subtract removes the cut union from one metric green polygon.
var subtract = geo.DifferenceSafe

// GenerateBuildable derives the buildable area from the committed state:
// each green polygon minus the union of all cuts, unioned, minus the street
// mask. A cut share above permitted percent returns a *LimitError and keeps
// the previous buildable area.
func (a *Aggregator) GenerateBuildable(permitted float64) (*geojson.Feature, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.green) == 0 {
		return nil, ErrNoGreenArea
	}

	p := a.projection()

	cutsM := make([]orb.Geometry, 0, len(a.cuts))
	for _, f := range a.cuts {
		if m := geo.ToMetricPolySafe(f.Geometry, p); m != nil {
			cutsM = append(cutsM, m)
		}
	}
	cutUnion := geo.UnionCutsMetric(cutsM)

	var (
		parts      []orb.Geometry
		greenTotal float64
		removed    float64
		failed     bool
	)
	for _, f := range a.green {
		gm := geo.ToMetricPolySafe(f.Geometry, p)
		if gm == nil {
			logger.Get().Debug("green area not usable", zap.Int("uid", UID(f)))
			continue
		}
		area := geo.PlanarArea(gm)
		greenTotal += area

		d := subtract(gm, cutUnion)
		if d == nil {
			failed = true
			continue
		}
		removed += math.Max(0, area-geo.PlanarArea(d))
		parts = append(parts, d)
	}
	if greenTotal <= 0 {
		return nil, ErrNoGreenArea
	}
	if failed {
		// Cuts that cannot be subtracted count as removing everything.
		removed = greenTotal
	}

	percent := removed / greenTotal * 100
	if percent > permitted+PercentTolerance {
		metrics.BuildableRejections.Inc()
		return nil, &LimitError{RemovedM2: removed, Percent: percent, Permitted: permitted}
	}

	result := geo.UnionAll(parts)
	if result != nil && a.streetMask != nil {
		if mask := geo.ToMetricPolySafe(a.streetMask, p); mask != nil {
			if d := geo.DifferenceSafe(result, mask); d != nil {
				result = d
			}
		}
	}
	if result == nil || geo.PlanarArea(result) <= 0 {
		return nil, ErrEmptyBuildable
	}

	f := geojson.NewFeature(geo.Rewind(p.Inverse(result)))
	f.Properties[geo.UIDProperty] = a.seq.Next(CategoryBuildable)
	f.Properties["area_m2"] = geo.PlanarArea(result)
	f.Properties["removed_m2"] = removed
	f.Properties["removed_percent"] = percent
	a.buildable = f

	logger.Get().Debug("buildable area generated",
		zap.Float64("area_m2", geo.PlanarArea(result)),
		zap.Float64("removed_percent", percent))
	return clone(f), nil
}

func (a *Aggregator) projection() geo.Projection {
	geoms := make([]orb.Geometry, 0, len(a.green)+len(a.cuts)+1)
	for _, f := range a.green {
		geoms = append(geoms, f.Geometry)
	}
	for _, f := range a.cuts {
		geoms = append(geoms, f.Geometry)
	}
	return geo.ProjectionFor(geoms...)
}
