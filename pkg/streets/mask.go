package streets

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/flavioborgesnunes/loteamento-frontend-sub000/internal/logger"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/geo"
)

// BuildMask buffers every street by half its width and unions the buffers.
// Streets without a positive finite width are skipped. The result is in the
// metric projection p, or nil when no street produced a buffer.
func BuildMask(streets []*geojson.Feature, defaultWidth float64, p geo.Projection) orb.Geometry {
	bufs := make([]orb.Geometry, 0, len(streets))
	for _, f := range streets {
		w := WidthOf(f, defaultWidth)
		if !(w > 0) || math.IsInf(w, 0) {
			logger.Get().Debug("street skipped", zap.Any("id", idOf(f)), zap.Float64("width_m", w))
			continue
		}
		if b := BufferStreet(f, w/2, p); b != nil {
			bufs = append(bufs, b)
		}
	}
	if len(bufs) == 0 {
		return nil
	}
	return geo.UnionAll(bufs)
}

func idOf(f *geojson.Feature) any {
	if f == nil {
		return nil
	}
	if uid, ok := f.Properties[geo.UIDProperty]; ok {
		return uid
	}
	return f.ID
}
