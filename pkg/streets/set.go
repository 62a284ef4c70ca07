package streets

import (
	"errors"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/flavioborgesnunes/loteamento-frontend-sub000/internal/logger"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/internal/metrics"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/geo"
)

// DefaultWidth is the street width used when a street carries none.
const DefaultWidth = 12.0

// MaskKind is the "kind" property set on mask features.
const MaskKind = "ruas_mask"

var (
	ErrUnknownStreet = errors.New("unknown street")
	ErrNotLine       = errors.New("street geometry must be a LineString or MultiLineString")
	ErrInvalidWidth  = errors.New("street width must be positive and finite")
)

// Set owns the street centerlines of a project and caches the mask derived
// from them. The cache is rebuilt lazily on the first read after a change.
type Set struct {
	mu           sync.Mutex
	next         int
	streets      []*geojson.Feature
	aoi          orb.Geometry
	defaultWidth float64
	extendM      float64

	dirty   bool
	raw     orb.Geometry // lon/lat
	clipped orb.Geometry // lon/lat
	area    float64      // metric area of clipped
}

// NewSet returns an empty set using defaultWidth for streets without width_m.
func NewSet(defaultWidth float64) *Set {
	if !(defaultWidth > 0) {
		defaultWidth = DefaultWidth
	}
	return &Set{defaultWidth: defaultWidth, dirty: true}
}

// Add stores a street and returns its id. width <= 0 keeps the feature's own
// width_m, falling back to the set default.
func (s *Set) Add(g orb.Geometry, width float64) (int, error) {
	if !isLine(g) {
		return 0, ErrNotLine
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(g, nil, width), nil
}

// AddFeature stores a street feature, keeping its properties.
func (s *Set) AddFeature(f *geojson.Feature) (int, error) {
	if f == nil || !isLine(f.Geometry) {
		return 0, ErrNotLine
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(f.Geometry, f.Properties, 0), nil
}

func (s *Set) addLocked(g orb.Geometry, props geojson.Properties, width float64) int {
	s.next++
	f := geojson.NewFeature(orb.Clone(g))
	for k, v := range props {
		if k != geo.UIDProperty {
			f.Properties[k] = v
		}
	}
	f.Properties[geo.UIDProperty] = s.next
	if width > 0 {
		f.Properties[WidthProperty] = width
	}
	s.streets = append(s.streets, f)
	s.dirty = true
	return s.next
}

func isLine(g orb.Geometry) bool {
	switch g.(type) {
	case orb.LineString, orb.MultiLineString:
		return true
	}
	return false
}

// UpdateWidth changes the width of one street.
func (s *Set) UpdateWidth(id int, width float64) error {
	if !ValidWidth(width) {
		return ErrInvalidWidth
	}
	return s.Update(id, nil, width)
}

// UpdateGeometry replaces the centerline of one street.
func (s *Set) UpdateGeometry(id int, g orb.Geometry) error {
	if g == nil {
		return ErrNotLine
	}
	return s.Update(id, g, 0)
}

// Update changes the centerline and the width of one street together. A nil
// g keeps the centerline and a zero width keeps the width. Both are checked
// before either is applied.
func (s *Set) Update(id int, g orb.Geometry, width float64) error {
	if g != nil && !isLine(g) {
		return ErrNotLine
	}
	if width != 0 && !ValidWidth(width) {
		return ErrInvalidWidth
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.find(id)
	if f == nil {
		return ErrUnknownStreet
	}
	if g != nil {
		f.Geometry = orb.Clone(g)
	}
	if width != 0 {
		f.Properties[WidthProperty] = width
	}
	s.dirty = true
	return nil
}

// ValidWidth reports whether w is usable as a street width.
func ValidWidth(w float64) bool {
	return w > 0 && w <= 1e6
}

// Remove deletes one street. Its id is not reused.
func (s *Set) Remove(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.streets {
		if uidOf(f) == id {
			s.streets = append(s.streets[:i], s.streets[i+1:]...)
			s.dirty = true
			return nil
		}
	}
	return ErrUnknownStreet
}

// SetAOI sets or, with nil, clears the clipping boundary.
func (s *Set) SetAOI(aoi orb.Geometry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if aoi != nil {
		aoi = geo.CloseRings(orb.Clone(aoi))
	}
	s.aoi = aoi
	s.dirty = true
}

// SetDefaultWidth changes the width used for streets without width_m.
func (s *Set) SetDefaultWidth(w float64) error {
	if !ValidWidth(w) {
		return ErrInvalidWidth
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultWidth = w
	s.dirty = true
	return nil
}

// SetExtension extends every street by meters at both ends before buffering.
func (s *Set) SetExtension(meters float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extendM = meters
	s.dirty = true
}

// Features returns copies of the stored streets.
func (s *Set) Features() *geojson.FeatureCollection {
	s.mu.Lock()
	defer s.mu.Unlock()
	fc := geojson.NewFeatureCollection()
	for _, f := range s.streets {
		fc.Append(cloneFeature(f))
	}
	return fc
}

// Len returns the number of streets.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streets)
}

// Mask returns the exposed mask: the clipped one when an AOI is set and the
// clip is not degenerate, the raw one otherwise. nil when there is no mask.
func (s *Set) Mask() *geojson.Feature {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuild()
	if s.aoi != nil && s.clipped != nil && s.area > MaskEpsilon {
		return maskFeature(s.clipped, true)
	}
	if s.aoi != nil && s.raw != nil {
		logger.Get().Debug("showing raw street mask, AOI clip degenerate")
	}
	return maskFeature(s.raw, false)
}

// RawMask returns the unclipped mask.
func (s *Set) RawMask() *geojson.Feature {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuild()
	return maskFeature(s.raw, false)
}

// ClippedMask returns the AOI-clipped mask, nil without an AOI or when every
// clip strategy was degenerate.
func (s *Set) ClippedMask() *geojson.Feature {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuild()
	return maskFeature(s.clipped, true)
}

func (s *Set) rebuild() {
	if !s.dirty {
		return
	}
	start := time.Now()
	s.dirty = false
	s.raw, s.clipped, s.area = nil, nil, 0

	if len(s.streets) == 0 {
		return
	}

	feats := make([]*geojson.Feature, 0, len(s.streets))
	geoms := make([]orb.Geometry, 0, len(s.streets)+1)
	for _, f := range s.streets {
		geoms = append(geoms, f.Geometry)
	}
	if s.aoi != nil {
		geoms = append(geoms, s.aoi)
	}
	p := geo.ProjectionFor(geoms...)

	for _, f := range s.streets {
		if s.extendM > 0 {
			f = cloneFeature(f)
			f.Geometry = geo.ExtendLines(f.Geometry, s.extendM, p)
		}
		feats = append(feats, f)
	}

	raw := BuildMask(feats, s.defaultWidth, p)
	if raw == nil {
		return
	}
	s.raw = p.Inverse(raw)
	if s.aoi != nil {
		if clipped := ClipMaskToAOI(raw, s.aoi, p); clipped != nil {
			s.clipped = p.Inverse(clipped)
			s.area = geo.PlanarArea(clipped)
		}
	}

	metrics.MaskBuilds.Inc()
	elapsed := time.Since(start)
	metrics.MaskBuildDurationMs.Observe(float64(elapsed.Microseconds()) / 1000)
	logger.Get().Debug("street mask rebuilt",
		zap.Int("streets", len(s.streets)),
		zap.Bool("clipped", s.clipped != nil),
		zap.Duration("took", elapsed))
}

func (s *Set) find(id int) *geojson.Feature {
	for _, f := range s.streets {
		if uidOf(f) == id {
			return f
		}
	}
	return nil
}

func uidOf(f *geojson.Feature) int {
	switch v := f.Properties[geo.UIDProperty].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func maskFeature(g orb.Geometry, clipped bool) *geojson.Feature {
	if g == nil {
		return nil
	}
	f := geojson.NewFeature(orb.Clone(g))
	f.Properties["kind"] = MaskKind
	f.Properties["clipped"] = clipped
	return f
}

func cloneFeature(f *geojson.Feature) *geojson.Feature {
	out := geojson.NewFeature(orb.Clone(f.Geometry))
	out.ID = f.ID
	for k, v := range f.Properties {
		out.Properties[k] = v
	}
	return out
}
