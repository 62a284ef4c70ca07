package editor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Drawing modes understood by MemoryLayer.
const (
	ModeSimpleSelect = "simple_select"
	ModeDirectSelect = "direct_select"
	ModeDrawPolygon  = "draw_polygon"
	ModeDrawLine     = "draw_line_string"
)

var (
	ErrUnknownMode    = errors.New("unknown draw mode")
	ErrFeatureMissing = errors.New("feature not in layer")
)

// Layer is an editable map layer: the live, in-progress copy of a feature
// collection while the user drags vertices.
type Layer interface {
	GetAll() *geojson.FeatureCollection
	Add(fc *geojson.FeatureCollection) []string
	Delete(ids []string)
	ChangeMode(mode string, opts map[string]any) error
}

// MemoryLayer is a Layer kept in memory. Feature ids are uuid strings.
type MemoryLayer struct {
	mu       sync.Mutex
	order    []string
	features map[string]*geojson.Feature
	mode     string
	modeOpts map[string]any
}

func NewMemoryLayer() *MemoryLayer {
	return &MemoryLayer{features: make(map[string]*geojson.Feature), mode: ModeSimpleSelect}
}

// GetAll returns copies of the layer's features in insertion order.
func (l *MemoryLayer) GetAll() *geojson.FeatureCollection {
	l.mu.Lock()
	defer l.mu.Unlock()
	fc := geojson.NewFeatureCollection()
	for _, id := range l.order {
		fc.Append(cloneFeature(l.features[id]))
	}
	return fc
}

// Add stores the features of fc and returns their ids. A feature whose id is
// already in the layer replaces it in place.
func (l *MemoryLayer) Add(fc *geojson.FeatureCollection) []string {
	if fc == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f == nil {
			continue
		}
		cp := cloneFeature(f)
		id := idString(cp.ID)
		if id == "" {
			id = uuid.NewString()
		}
		cp.ID = id
		if _, ok := l.features[id]; !ok {
			l.order = append(l.order, id)
		}
		l.features[id] = cp
		ids = append(ids, id)
	}
	return ids
}

// Delete removes features by id. Unknown ids are ignored.
func (l *MemoryLayer) Delete(ids []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := l.features[id]; ok {
			drop[id] = true
			delete(l.features, id)
		}
	}
	if len(drop) == 0 {
		return
	}
	kept := l.order[:0]
	for _, id := range l.order {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	l.order = kept
}

func (l *MemoryLayer) ChangeMode(mode string, opts map[string]any) error {
	switch mode {
	case ModeSimpleSelect, ModeDirectSelect, ModeDrawPolygon, ModeDrawLine:
	default:
		return fmt.Errorf("%q: %w", mode, ErrUnknownMode)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mode = mode
	l.modeOpts = opts
	return nil
}

// Mode returns the current draw mode.
func (l *MemoryLayer) Mode() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode
}

// Update replaces the geometry of one feature, as a vertex drag does.
func (l *MemoryLayer) Update(id string, g orb.Geometry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.features[id]
	if !ok {
		return ErrFeatureMissing
	}
	f.Geometry = orb.Clone(g)
	return nil
}

func idString(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func cloneFeature(f *geojson.Feature) *geojson.Feature {
	out := geojson.NewFeature(orb.Clone(f.Geometry))
	out.ID = f.ID
	for k, v := range f.Properties {
		out.Properties[k] = v
	}
	return out
}
