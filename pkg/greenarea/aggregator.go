// Package greenarea keeps the green areas (áreas verdes) and cuts (cortes) of
// a project, reports their totals and derives the buildable area from them.
package greenarea

import (
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/flavioborgesnunes/loteamento-frontend-sub000/internal/logger"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/geo"
)

// Snapshot is one read of the green and cut collections, either committed
// state or a live editing layer.
type Snapshot struct {
	Green []*geojson.Feature
	Cuts  []*geojson.Feature
}

// Totals are the area figures shown while editing.
type Totals struct {
	GreenM2    float64 `json:"green_m2"`
	CutM2      float64 `json:"cut_m2"`
	CutPercent float64 `json:"cut_percent"`
}

// ComputeTotals sums the geodesic areas of a snapshot. The percentage is 0
// when there is no green area.
func ComputeTotals(s Snapshot) Totals {
	var t Totals
	for _, f := range s.Green {
		t.GreenM2 += featureArea(f)
	}
	for _, f := range s.Cuts {
		t.CutM2 += featureArea(f)
	}
	if t.GreenM2 > 0 {
		t.CutPercent = t.CutM2 / t.GreenM2 * 100
	}
	return t
}

func featureArea(f *geojson.Feature) float64 {
	if f == nil || !geo.IsPolygonal(f.Geometry) {
		return 0
	}
	return geo.AreaM2(geo.CloseRings(f.Geometry))
}

// Aggregator owns the committed green and cut features, the last generated
// buildable area and the street mask subtracted from it.
type Aggregator struct {
	mu         sync.Mutex
	seq        *Sequence
	green      []*geojson.Feature
	cuts       []*geojson.Feature
	buildable  *geojson.Feature
	streetMask orb.Geometry
}

// New returns an aggregator with its own id sequence.
func New() *Aggregator {
	return NewWithSequence(NewSequence())
}

// NewWithSequence returns an aggregator drawing ids from seq.
func NewWithSequence(seq *Sequence) *Aggregator {
	if seq == nil {
		seq = NewSequence()
	}
	return &Aggregator{seq: seq}
}

// AddGreen stores a green area and returns its _uid.
func (a *Aggregator) AddGreen(g orb.Geometry) (int, error) {
	return a.add(CategoryGreen, &a.green, g)
}

// AddCut stores a cut and returns its _uid.
func (a *Aggregator) AddCut(g orb.Geometry) (int, error) {
	return a.add(CategoryCut, &a.cuts, g)
}

func (a *Aggregator) add(c Category, list *[]*geojson.Feature, g orb.Geometry) (int, error) {
	f, err := geo.EnsureFeaturePolygon(geo.CloseRings(g))
	if err != nil {
		return 0, err
	}
	f = geo.EnsureClosedPolygon(f)

	a.mu.Lock()
	defer a.mu.Unlock()
	uid := a.seq.Next(c)
	out := geojson.NewFeature(orb.Clone(f.Geometry))
	out.Properties[geo.UIDProperty] = uid
	*list = append(*list, out)
	return uid, nil
}

// ClearCuts drops every cut.
func (a *Aggregator) ClearCuts() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cuts = nil
}

func (a *Aggregator) RemoveGreen(uid int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return remove(&a.green, uid)
}

func (a *Aggregator) RemoveCut(uid int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return remove(&a.cuts, uid)
}

func remove(list *[]*geojson.Feature, uid int) error {
	for i, f := range *list {
		if UID(f) == uid {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return nil
		}
	}
	return ErrUnknownFeature
}

// Commit replaces the committed collections with s, typically the live layer
// read at the end of an edit. Features without a _uid get a fresh one;
// non-polygonal features are dropped.
func (a *Aggregator) Commit(s Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.green = a.adopt(CategoryGreen, s.Green)
	a.cuts = a.adopt(CategoryCut, s.Cuts)
}

func (a *Aggregator) adopt(c Category, feats []*geojson.Feature) []*geojson.Feature {
	out := make([]*geojson.Feature, 0, len(feats))
	for _, f := range feats {
		if f == nil || !geo.IsPolygonal(f.Geometry) {
			logger.Get().Debug("dropping non-polygonal feature on commit", zap.String("category", string(c)))
			continue
		}
		cp := clone(f)
		cp.Geometry = geo.CloseRings(cp.Geometry)
		if uid := UID(cp); uid > 0 {
			a.seq.Observe(c, uid)
		} else {
			cp.Properties[geo.UIDProperty] = a.seq.Next(c)
		}
		out = append(out, cp)
	}
	return out
}

// Committed returns a copy of the committed collections.
func (a *Aggregator) Committed() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{Green: cloneAll(a.green), Cuts: cloneAll(a.cuts)}
}

// SetStreetMask sets the lon/lat street mask subtracted from the buildable
// area. nil clears it.
func (a *Aggregator) SetStreetMask(g orb.Geometry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if g != nil {
		g = orb.Clone(g)
	}
	a.streetMask = g
}

// Buildable returns the last generated buildable area, or nil.
func (a *Aggregator) Buildable() *geojson.Feature {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.buildable == nil {
		return nil
	}
	return clone(a.buildable)
}

// UID reads the _uid property of f, 0 when missing.
func UID(f *geojson.Feature) int {
	if f == nil {
		return 0
	}
	switch v := f.Properties[geo.UIDProperty].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func clone(f *geojson.Feature) *geojson.Feature {
	out := geojson.NewFeature(orb.Clone(f.Geometry))
	out.ID = f.ID
	for k, v := range f.Properties {
		out.Properties[k] = v
	}
	return out
}

func cloneAll(in []*geojson.Feature) []*geojson.Feature {
	out := make([]*geojson.Feature, len(in))
	for i, f := range in {
		out[i] = clone(f)
	}
	return out
}
