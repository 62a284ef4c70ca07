// Package editor ties the green-area aggregator, the street set and the
// frame coalescer into one editing session. It decides which snapshot a read
// uses: the live layers while they are attached, committed state otherwise.
package editor

import (
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/flavioborgesnunes/loteamento-frontend-sub000/internal/logger"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/internal/metrics"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/greenarea"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/schedule"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/streets"
)

// Options configure a Session.
type Options struct {
	Frames             schedule.FrameSource
	PercentPermitido   float64
	DefaultStreetWidth float64
	ExtendStreetsM     float64
	AOI                orb.Geometry
}

// Session is one project being edited.
type Session struct {
	agg     *greenarea.Aggregator
	streets *streets.Set
	coal    *schedule.Coalescer

	mu        sync.Mutex
	live      bool
	green     Layer
	cuts      Layer
	totals    greenarea.Totals
	permitted float64
	closed    bool
}

func NewSession(opts Options) *Session {
	s := &Session{
		agg:       greenarea.New(),
		streets:   streets.NewSet(opts.DefaultStreetWidth),
		permitted: opts.PercentPermitido,
	}
	s.streets.SetExtension(opts.ExtendStreetsM)
	if opts.AOI != nil {
		s.streets.SetAOI(opts.AOI)
	}
	s.coal = schedule.NewCoalescer(opts.Frames, s.recompute)
	return s
}

// Aggregator exposes committed green/cut state.
func (s *Session) Aggregator() *greenarea.Aggregator { return s.agg }

// Streets exposes the street set.
func (s *Session) Streets() *streets.Set { return s.streets }

// AttachLayers installs the live editing layers, seeded with committed state.
// Either layer may be nil.
func (s *Session) AttachLayers(green, cuts Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.agg.Committed()
	if green != nil {
		green.Add(collection(snap.Green))
	}
	if cuts != nil {
		cuts.Add(collection(snap.Cuts))
	}
	s.green, s.cuts = green, cuts
	s.live = green != nil || cuts != nil
}

// DetachLayers commits the live layers and drops them. Later reads use
// committed state.
func (s *Session) DetachLayers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live {
		s.commitLocked()
	}
	s.green, s.cuts = nil, nil
	s.live = false
}

// HasLiveLayer reports whether reads come from live layers.
func (s *Session) HasLiveLayer() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// Layer returns the live layer by name ("verde" or "corte"), or nil.
func (s *Session) Layer(name string) Layer {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch name {
	case "verde", "green":
		return s.green
	case "corte", "cut":
		return s.cuts
	}
	return nil
}

// HandleEvent reacts to a map edit event. Gesture ends commit the live layers
// to state; every known event schedules a totals recompute. It reports
// whether the event was recognised.
func (s *Session) HandleEvent(name string) bool {
	if !schedule.Triggers(name) {
		return false
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return true
	}
	if schedule.IsEditEnd(name) && s.live {
		s.commitLocked()
	}
	s.mu.Unlock()

	s.coal.Schedule()
	return true
}

func (s *Session) commitLocked() {
	snap := s.agg.Committed()
	if s.green != nil {
		snap.Green = s.green.GetAll().Features
	}
	if s.cuts != nil {
		snap.Cuts = s.cuts.GetAll().Features
	}
	s.agg.Commit(snap)

	// Features drawn during the gesture got their _uid on commit; write it
	// back so the next commit keeps it.
	committed := s.agg.Committed()
	if s.green != nil {
		s.green.Add(collection(committed.Green))
	}
	if s.cuts != nil {
		s.cuts.Add(collection(committed.Cuts))
	}
}

// Snapshot returns what a read sees right now.
func (s *Session) Snapshot() greenarea.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() greenarea.Snapshot {
	snap := s.agg.Committed()
	if !s.live {
		return snap
	}
	if s.green != nil {
		snap.Green = s.green.GetAll().Features
	}
	if s.cuts != nil {
		snap.Cuts = s.cuts.GetAll().Features
	}
	return snap
}

func (s *Session) recompute() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.totals = greenarea.ComputeTotals(s.snapshotLocked())
	metrics.Recomputes.Inc()
	logger.Get().Debug("area totals recomputed",
		zap.Bool("live", s.live),
		zap.Float64("green_m2", s.totals.GreenM2),
		zap.Float64("cut_percent", s.totals.CutPercent))
}

// Totals returns the last recomputed totals.
func (s *Session) Totals() greenarea.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals
}

// Refresh recomputes the totals now, dropping any pending frame.
func (s *Session) Refresh() greenarea.Totals {
	s.coal.Cancel()
	s.recompute()
	return s.Totals()
}

// AddGreen commits a green area and mirrors it into the live layer.
func (s *Session) AddGreen(g orb.Geometry) (int, error) {
	s.mu.Lock()
	uid, err := s.agg.AddGreen(g)
	if err == nil {
		s.mirrorLocked(s.layerOfLocked(greenarea.CategoryGreen), s.agg.Committed().Green, uid)
	}
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	s.coal.Schedule()
	return uid, nil
}

// AddCut commits a cut and mirrors it into the live layer.
func (s *Session) AddCut(g orb.Geometry) (int, error) {
	s.mu.Lock()
	uid, err := s.agg.AddCut(g)
	if err == nil {
		s.mirrorLocked(s.layerOfLocked(greenarea.CategoryCut), s.agg.Committed().Cuts, uid)
	}
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	s.coal.Schedule()
	return uid, nil
}

// ClearCuts removes every cut from state and from the live layer.
func (s *Session) ClearCuts() {
	s.mu.Lock()
	s.agg.ClearCuts()
	if l := s.layerOfLocked(greenarea.CategoryCut); l != nil {
		l.Delete(layerIDs(l.GetAll(), nil))
	}
	s.mu.Unlock()
	s.coal.Schedule()
}

func (s *Session) RemoveGreen(uid int) error {
	return s.remove(greenarea.CategoryGreen, uid, s.agg.RemoveGreen)
}

func (s *Session) RemoveCut(uid int) error {
	return s.remove(greenarea.CategoryCut, uid, s.agg.RemoveCut)
}

func (s *Session) remove(c greenarea.Category, uid int, drop func(int) error) error {
	s.mu.Lock()
	err := drop(uid)
	if err == nil {
		if l := s.layerOfLocked(c); l != nil {
			l.Delete(layerIDs(l.GetAll(), &uid))
		}
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.coal.Schedule()
	return nil
}

// GenerateBuildable commits any live edit, then derives the buildable area
// with the current street mask subtracted.
func (s *Session) GenerateBuildable() (*geojson.Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live {
		s.commitLocked()
	}
	if m := s.streets.Mask(); m != nil {
		s.agg.SetStreetMask(m.Geometry)
	} else {
		s.agg.SetStreetMask(nil)
	}
	return s.agg.GenerateBuildable(s.permitted)
}

// SetPercentPermitido changes the cut limit used by GenerateBuildable.
func (s *Session) SetPercentPermitido(p float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permitted = p
}

func (s *Session) AddStreet(g orb.Geometry, width float64) (int, error) {
	return s.streets.Add(g, width)
}

func (s *Session) UpdateStreetWidth(id int, width float64) error {
	return s.streets.UpdateWidth(id, width)
}

func (s *Session) RemoveStreet(id int) error {
	return s.streets.Remove(id)
}

// StreetMask returns the exposed street mask, or nil.
func (s *Session) StreetMask() *geojson.Feature {
	return s.streets.Mask()
}

// Close cancels pending work. Events after Close are ignored.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.coal.Cancel()
}

func (s *Session) layerOfLocked(c greenarea.Category) Layer {
	if !s.live {
		return nil
	}
	if c == greenarea.CategoryGreen {
		return s.green
	}
	return s.cuts
}

func (s *Session) mirrorLocked(l Layer, committed []*geojson.Feature, uid int) {
	if l == nil {
		return
	}
	for _, f := range committed {
		if greenarea.UID(f) == uid {
			l.Add(collection([]*geojson.Feature{f}))
			return
		}
	}
}

// layerIDs lists the layer ids of fc, all of them or only the feature with
// the given _uid.
func layerIDs(fc *geojson.FeatureCollection, uid *int) []string {
	var ids []string
	for _, f := range fc.Features {
		if uid != nil && greenarea.UID(f) != *uid {
			continue
		}
		ids = append(ids, idString(f.ID))
	}
	return ids
}

func collection(feats []*geojson.Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range feats {
		fc.Append(cloneFeature(f))
	}
	return fc
}
