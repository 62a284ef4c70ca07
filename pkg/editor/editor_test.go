package editor

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/geo"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/greenarea"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/schedule"
)

const (
	refLon = -47.9292
	refLat = -15.7801
)

var proj = geo.NewProjection(refLat)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) < tol
}

func offset(x, y float64) orb.Point {
	o := proj.ToMetric(orb.Point{refLon, refLat})
	return proj.ToWGS84(orb.Point{o[0] + x, o[1] + y})
}

func rect(x, y, w, h float64) orb.Polygon {
	return orb.Polygon{{
		offset(x, y), offset(x+w, y), offset(x+w, y+h), offset(x, y+h), offset(x, y),
	}}
}

func newSession(t *testing.T) (*Session, *schedule.ManualFrames) {
	t.Helper()
	frames := schedule.NewManualFrames()
	s := NewSession(Options{Frames: frames, PercentPermitido: 10, DefaultStreetWidth: 10})
	t.Cleanup(s.Close)
	return s, frames
}

// --- live vs committed ---

func TestTotalsFollowLiveLayerDuringDrag(t *testing.T) {
	s, frames := newSession(t)
	green, cuts := NewMemoryLayer(), NewMemoryLayer()
	s.AttachLayers(green, cuts)
	if !s.HasLiveLayer() {
		t.Fatal("expected live layers")
	}

	if _, err := s.AddGreen(rect(0, 0, 100, 100)); err != nil {
		t.Fatal(err)
	}
	frames.Flush()
	if got := s.Totals().GreenM2; !approxEqual(got, 10000, 10) {
		t.Fatalf("green = %.1f, want ~10000", got)
	}

	id := green.GetAll().Features[0].ID.(string)
	if err := green.Update(id, rect(0, 0, 100, 200)); err != nil {
		t.Fatal(err)
	}
	s.HandleEvent(schedule.EventVertexDrag)
	frames.Flush()

	if got := s.Totals().GreenM2; !approxEqual(got, 20000, 20) {
		t.Errorf("live green = %.1f, want ~20000", got)
	}
	committed := greenarea.ComputeTotals(s.Aggregator().Committed())
	if !approxEqual(committed.GreenM2, 10000, 10) {
		t.Errorf("committed state changed mid-drag: %.1f", committed.GreenM2)
	}

	s.HandleEvent(schedule.EventDragEnd)
	frames.Flush()
	committed = greenarea.ComputeTotals(s.Aggregator().Committed())
	if !approxEqual(committed.GreenM2, 20000, 20) {
		t.Errorf("drag end must commit the layer, got %.1f", committed.GreenM2)
	}
}

func TestCommittedStateWithoutLiveLayer(t *testing.T) {
	s, frames := newSession(t)
	if s.HasLiveLayer() {
		t.Fatal("no layer attached yet")
	}
	_, _ = s.AddGreen(rect(0, 0, 100, 100))
	_, _ = s.AddCut(rect(10, 10, 20, 20))
	frames.Flush()

	got := s.Totals()
	if !approxEqual(got.CutPercent, 4, 0.05) {
		t.Errorf("percent = %.3f, want ~4", got.CutPercent)
	}
}

func TestEventsCoalesceIntoOneFrame(t *testing.T) {
	s, frames := newSession(t)
	s.AttachLayers(NewMemoryLayer(), NewMemoryLayer())
	for _, ev := range []string{schedule.EventVertexDrag, schedule.EventVertexDrag, schedule.EventSnap, schedule.EventVertexDrag} {
		if !s.HandleEvent(ev) {
			t.Errorf("%s not recognised", ev)
		}
	}
	if n := frames.Flush(); n != 1 {
		t.Errorf("frames run = %d, want 1", n)
	}
	if s.HandleEvent("draw.selectionchange") {
		t.Error("unknown events must be ignored")
	}
	if frames.Pending() != 0 {
		t.Error("ignored events must not schedule")
	}
}

func TestDrawnFeatureKeepsUIDAcrossCommits(t *testing.T) {
	s, frames := newSession(t)
	green := NewMemoryLayer()
	s.AttachLayers(green, nil)

	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(rect(0, 0, 30, 30)))
	green.Add(fc)

	s.HandleEvent(schedule.EventCreate)
	frames.Flush()
	first := s.Aggregator().Committed().Green
	if len(first) != 1 || greenarea.UID(first[0]) == 0 {
		t.Fatalf("drawn feature not committed with a uid: %v", first)
	}

	s.HandleEvent(schedule.EventEditEnd)
	frames.Flush()
	second := s.Aggregator().Committed().Green
	if greenarea.UID(second[0]) != greenarea.UID(first[0]) {
		t.Errorf("uid changed across commits: %d -> %d", greenarea.UID(first[0]), greenarea.UID(second[0]))
	}
}

func TestDetachCommitsAndFallsBack(t *testing.T) {
	s, frames := newSession(t)
	green := NewMemoryLayer()
	s.AttachLayers(green, nil)
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(rect(0, 0, 50, 50)))
	green.Add(fc)

	s.DetachLayers()
	if s.HasLiveLayer() {
		t.Error("detach must clear the live flag")
	}
	if got := s.Refresh().GreenM2; !approxEqual(got, 2500, 5) {
		t.Errorf("green after detach = %.1f, want ~2500", got)
	}
	if frames.Pending() != 0 {
		t.Error("refresh must drop pending frames")
	}
}

// --- mutations mirrored into the layer ---

func TestRemoveAndClearMirrorIntoLayer(t *testing.T) {
	s, _ := newSession(t)
	green, cuts := NewMemoryLayer(), NewMemoryLayer()
	s.AttachLayers(green, cuts)

	_, _ = s.AddGreen(rect(0, 0, 100, 100))
	c1, _ := s.AddCut(rect(10, 10, 10, 10))
	_, _ = s.AddCut(rect(40, 40, 10, 10))

	if err := s.RemoveCut(c1); err != nil {
		t.Fatal(err)
	}
	if n := len(cuts.GetAll().Features); n != 1 {
		t.Errorf("cut layer has %d features, want 1", n)
	}
	s.ClearCuts()
	if n := len(cuts.GetAll().Features); n != 0 {
		t.Errorf("cut layer has %d features after clear", n)
	}
	if n := len(green.GetAll().Features); n != 1 {
		t.Errorf("green layer has %d features, want 1", n)
	}
}

func TestAddAndRemoveSurviveConcurrentCommits(t *testing.T) {
	s, _ := newSession(t)
	green, cuts := NewMemoryLayer(), NewMemoryLayer()
	s.AttachLayers(green, cuts)

	const n = 40
	stop := make(chan struct{})
	var commits sync.WaitGroup
	commits.Add(1)
	go func() {
		defer commits.Done()
		for {
			select {
			case <-stop:
				return
			default:
				s.HandleEvent(schedule.EventDragEnd)
			}
		}
	}()

	var wg sync.WaitGroup
	added := make([]int, n)
	removed := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uid, err := s.AddGreen(rect(float64(i)*200, 0, 100, 100))
			if err != nil {
				t.Error(err)
				return
			}
			added[i] = uid
			c, err := s.AddCut(rect(float64(i)*200+10, 10, 10, 10))
			if err != nil {
				t.Error(err)
				return
			}
			if err := s.RemoveCut(c); err != nil {
				t.Errorf("remove cut %d: %v", c, err)
			}
			removed[i] = c
		}(i)
	}
	wg.Wait()
	close(stop)
	commits.Wait()
	s.DetachLayers()

	snap := s.Snapshot()
	have := map[int]int{}
	for _, f := range snap.Green {
		have[greenarea.UID(f)]++
	}
	for _, uid := range added {
		if have[uid] != 1 {
			t.Errorf("green %d committed %d times, want 1", uid, have[uid])
		}
	}
	if len(snap.Cuts) != 0 {
		t.Errorf("%d removed cuts came back: %v", len(snap.Cuts), removed)
	}
}

// --- buildable ---

func TestGenerateBuildableSubtractsStreets(t *testing.T) {
	s, _ := newSession(t)
	_, _ = s.AddGreen(rect(0, 0, 100, 100))
	_, _ = s.AddCut(rect(10, 10, 20, 20))
	if _, err := s.AddStreet(orb.LineString{offset(-20, 50), offset(120, 50)}, 10); err != nil {
		t.Fatal(err)
	}

	f, err := s.GenerateBuildable()
	if err != nil {
		t.Fatalf("GenerateBuildable failed: %v", err)
	}
	got := geo.AreaM2(f.Geometry)
	if !approxEqual(got, 10000-400-1000, 40) {
		t.Errorf("buildable = %.1f, want ~8600", got)
	}
}

func TestGenerateBuildableLimit(t *testing.T) {
	s, _ := newSession(t)
	_, _ = s.AddGreen(rect(0, 0, 100, 100))
	_, _ = s.AddCut(rect(0, 0, 50, 50))

	_, err := s.GenerateBuildable()
	var limit *greenarea.LimitError
	if !errors.As(err, &limit) {
		t.Fatalf("expected LimitError, got %v", err)
	}
	s.SetPercentPermitido(30)
	if _, err := s.GenerateBuildable(); err != nil {
		t.Errorf("raised limit should pass: %v", err)
	}
}

func TestStreetOperations(t *testing.T) {
	s, _ := newSession(t)
	id, err := s.AddStreet(orb.LineString{offset(0, 0), offset(100, 0)}, 0)
	if err != nil {
		t.Fatal(err)
	}
	narrow := geo.AreaM2(s.StreetMask().Geometry)
	if err := s.UpdateStreetWidth(id, 20); err != nil {
		t.Fatal(err)
	}
	if wide := geo.AreaM2(s.StreetMask().Geometry); wide <= narrow {
		t.Errorf("wider street should grow the mask: %.1f -> %.1f", narrow, wide)
	}
	if err := s.RemoveStreet(id); err != nil {
		t.Fatal(err)
	}
	if s.StreetMask() != nil {
		t.Error("mask should be nil without streets")
	}
}

func TestCloseCancelsPendingWork(t *testing.T) {
	frames := schedule.NewManualFrames()
	s := NewSession(Options{Frames: frames})
	_, _ = s.AddGreen(rect(0, 0, 10, 10))
	s.Close()
	frames.Flush()
	if s.Totals().GreenM2 != 0 {
		t.Error("no recompute may run after Close")
	}
	s.HandleEvent(schedule.EventVertexDrag)
	if frames.Pending() != 0 {
		t.Error("events after Close must not schedule")
	}
}

// --- memory layer ---

func TestMemoryLayer(t *testing.T) {
	l := NewMemoryLayer()
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(rect(0, 0, 1, 1)))
	fc.Append(geojson.NewFeature(rect(5, 5, 1, 1)))

	ids := l.Add(fc)
	if len(ids) != 2 || ids[0] == ids[1] || ids[0] == "" {
		t.Fatalf("bad ids: %v", ids)
	}
	l.Delete([]string{ids[0], "missing"})
	all := l.GetAll()
	if len(all.Features) != 1 || all.Features[0].ID != ids[1] {
		t.Errorf("unexpected layer contents after delete: %v", all.Features)
	}

	if err := l.ChangeMode(ModeDirectSelect, map[string]any{"featureId": ids[1]}); err != nil {
		t.Fatal(err)
	}
	if l.Mode() != ModeDirectSelect {
		t.Errorf("mode = %q", l.Mode())
	}
	if err := l.ChangeMode("static", nil); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("expected ErrUnknownMode, got %v", err)
	}
	if err := l.Update("missing", rect(0, 0, 1, 1)); !errors.Is(err, ErrFeatureMissing) {
		t.Errorf("expected ErrFeatureMissing, got %v", err)
	}
}
