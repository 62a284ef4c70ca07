package greenarea

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/geo"
)

const (
	refLon = -47.9292
	refLat = -15.7801
)

var proj = geo.NewProjection(refLat)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) < tol
}

// rect returns a lon/lat rectangle whose projected lower-left corner sits at
// (x, y) meters from the reference point.
func rect(x, y, w, h float64) orb.Polygon {
	o := proj.ToMetric(orb.Point{refLon, refLat})
	ring := orb.Ring{
		{o[0] + x, o[1] + y},
		{o[0] + x + w, o[1] + y},
		{o[0] + x + w, o[1] + y + h},
		{o[0] + x, o[1] + y + h},
		{o[0] + x, o[1] + y},
	}
	return proj.Inverse(orb.Polygon{ring}).(orb.Polygon)
}

func buildableArea(t *testing.T, f *geojson.Feature) float64 {
	t.Helper()
	if f == nil {
		t.Fatal("nil buildable feature")
	}
	return geo.PlanarArea(proj.Forward(f.Geometry))
}

// --- generate buildable ---

func TestGenerateBuildableHappyPath(t *testing.T) {
	a := New()
	if _, err := a.AddGreen(rect(0, 0, 100, 100)); err != nil {
		t.Fatal(err)
	}
	if _, err := a.AddCut(rect(40, 40, 20, 20)); err != nil {
		t.Fatal(err)
	}

	f, err := a.GenerateBuildable(10)
	if err != nil {
		t.Fatalf("GenerateBuildable failed: %v", err)
	}
	if got := buildableArea(t, f); !approxEqual(got, 9600, 30) {
		t.Errorf("buildable area = %.1f, want ~9600", got)
	}
	if UID(f) != 1 {
		t.Errorf("buildable _uid = %d, want 1", UID(f))
	}
	if pct := f.Properties["removed_percent"].(float64); !approxEqual(pct, 4, 0.2) {
		t.Errorf("removed_percent = %.2f, want ~4", pct)
	}
	if a.Buildable() == nil {
		t.Error("buildable state not stored")
	}
}

func TestGenerateBuildableRejectsOverLimit(t *testing.T) {
	a := New()
	_, _ = a.AddGreen(rect(0, 0, 40, 25))
	_, _ = a.AddCut(rect(2, 2, 10, 12.5))
	_, _ = a.AddCut(rect(20, 2, 10, 12.5))

	before, err := a.GenerateBuildable(30)
	if err != nil {
		t.Fatalf("generation at 30%% failed: %v", err)
	}

	_, err = a.GenerateBuildable(20)
	var limit *LimitError
	if !errors.As(err, &limit) {
		t.Fatalf("expected *LimitError, got %v", err)
	}
	if !approxEqual(limit.Percent, 25, 0.6) {
		t.Errorf("percent = %.2f, want ~25", limit.Percent)
	}
	if !approxEqual(limit.RemovedM2, 250, 6) {
		t.Errorf("removed = %.1f m², want ~250", limit.RemovedM2)
	}
	if limit.Permitted != 20 {
		t.Errorf("permitted = %v", limit.Permitted)
	}

	after := a.Buildable()
	if after == nil || UID(after) != UID(before) {
		t.Error("rejected generation must leave the buildable area unchanged")
	}
	if !orb.Equal(after.Geometry, before.Geometry) {
		t.Error("buildable geometry changed after rejection")
	}
}

func TestGenerateBuildableUnsubtractableCountsAsFullRemoval(t *testing.T) {
	orig := subtract
	subtract = func(a, b orb.Geometry) orb.Geometry { return nil }
	t.Cleanup(func() { subtract = orig })

	a := New()
	_, _ = a.AddGreen(rect(0, 0, 100, 100))
	_, _ = a.AddCut(rect(10, 10, 1, 1))

	_, err := a.GenerateBuildable(10)
	var limit *LimitError
	if !errors.As(err, &limit) {
		t.Fatalf("expected *LimitError, got %v", err)
	}
	if !approxEqual(limit.Percent, 100, 1e-9) {
		t.Errorf("percent = %.2f, want 100", limit.Percent)
	}
	if !approxEqual(limit.RemovedM2, 10000, 30) {
		t.Errorf("removed = %.1f m2, want ~10000", limit.RemovedM2)
	}
	if a.Buildable() != nil {
		t.Error("buildable area must stay unset after a rejection")
	}
}

func TestGenerateBuildableNoGreen(t *testing.T) {
	a := New()
	_, _ = a.AddCut(rect(0, 0, 10, 10))
	if _, err := a.GenerateBuildable(100); !errors.Is(err, ErrNoGreenArea) {
		t.Errorf("expected ErrNoGreenArea, got %v", err)
	}
}

func TestGenerateBuildableWithoutCuts(t *testing.T) {
	a := New()
	_, _ = a.AddGreen(rect(0, 0, 50, 50))
	f, err := a.GenerateBuildable(0)
	if err != nil {
		t.Fatalf("no cuts must pass a zero limit: %v", err)
	}
	if got := buildableArea(t, f); !approxEqual(got, 2500, 15) {
		t.Errorf("area = %.1f, want ~2500", got)
	}
}

func TestGenerateBuildableSubtractsStreetMask(t *testing.T) {
	a := New()
	_, _ = a.AddGreen(rect(0, 0, 100, 100))
	a.SetStreetMask(rect(-10, 45, 120, 10))

	f, err := a.GenerateBuildable(10)
	if err != nil {
		t.Fatal(err)
	}
	if got := buildableArea(t, f); !approxEqual(got, 9000, 30) {
		t.Errorf("area = %.1f, want ~9000", got)
	}
	if _, ok := f.Geometry.(orb.MultiPolygon); !ok {
		t.Errorf("a street across the green splits it, got %T", f.Geometry)
	}
}

func TestGenerateBuildableUnionsGreens(t *testing.T) {
	a := New()
	_, _ = a.AddGreen(rect(0, 0, 50, 50))
	_, _ = a.AddGreen(rect(200, 0, 50, 50))
	_, _ = a.AddCut(rect(10, 10, 5, 5))

	f, err := a.GenerateBuildable(5)
	if err != nil {
		t.Fatal(err)
	}
	if got := buildableArea(t, f); !approxEqual(got, 5000-25, 30) {
		t.Errorf("area = %.1f, want ~4975", got)
	}
}

// --- sequence ---

func TestSequenceIDsStrictlyIncreasing(t *testing.T) {
	a := New()
	var prev int
	for i := 0; i < 3; i++ {
		uid, err := a.AddGreen(rect(float64(i)*30, 0, 20, 20))
		if err != nil {
			t.Fatal(err)
		}
		if uid <= prev {
			t.Errorf("uid %d not greater than %d", uid, prev)
		}
		prev = uid
	}
	got := a.Committed().Green
	if len(got) != 3 {
		t.Fatalf("expected 3 green areas, got %d", len(got))
	}
	seen := map[int]bool{}
	for _, f := range got {
		if seen[UID(f)] {
			t.Errorf("duplicate uid %d", UID(f))
		}
		seen[UID(f)] = true
	}
}

func TestSequencesAreIndependentPerAggregator(t *testing.T) {
	a, b := New(), New()
	ua, _ := a.AddGreen(rect(0, 0, 10, 10))
	ub, _ := b.AddGreen(rect(0, 0, 10, 10))
	if ua != 1 || ub != 1 {
		t.Errorf("independent aggregators must start at 1, got %d and %d", ua, ub)
	}
	uc, _ := a.AddCut(rect(0, 0, 5, 5))
	if uc != 1 {
		t.Errorf("cut sequence must be separate from green, got %d", uc)
	}
}

func TestRemovedIDsAreNotReused(t *testing.T) {
	a := New()
	u1, _ := a.AddCut(rect(0, 0, 5, 5))
	if err := a.RemoveCut(u1); err != nil {
		t.Fatal(err)
	}
	u2, _ := a.AddCut(rect(0, 0, 5, 5))
	if u2 <= u1 {
		t.Errorf("uid %d reused after removal", u2)
	}
	if err := a.RemoveCut(u1); !errors.Is(err, ErrUnknownFeature) {
		t.Errorf("second removal: %v", err)
	}
}

// --- state ---

func TestAddRejectsNonPolygon(t *testing.T) {
	a := New()
	if _, err := a.AddGreen(orb.LineString{{0, 0}, {1, 1}}); !errors.Is(err, geo.ErrNotPolygonal) {
		t.Errorf("expected ErrNotPolygonal, got %v", err)
	}
}

func TestCommitAssignsMissingIDs(t *testing.T) {
	a := New()
	tagged := geojson.NewFeature(rect(0, 0, 10, 10))
	tagged.Properties[geo.UIDProperty] = 10.0
	untagged := geojson.NewFeature(rect(20, 0, 10, 10))
	line := geojson.NewFeature(orb.LineString{{0, 0}, {1, 1}})

	a.Commit(Snapshot{Green: []*geojson.Feature{tagged, untagged, line}})
	got := a.Committed()
	if len(got.Green) != 2 {
		t.Fatalf("expected 2 committed greens, got %d", len(got.Green))
	}
	if UID(got.Green[0]) != 10 || UID(got.Green[1]) != 11 {
		t.Errorf("uids = %d, %d; want 10, 11", UID(got.Green[0]), UID(got.Green[1]))
	}
	if next, _ := a.AddGreen(rect(40, 0, 10, 10)); next != 12 {
		t.Errorf("next uid = %d, want 12", next)
	}
}

func TestCommittedIsACopy(t *testing.T) {
	a := New()
	_, _ = a.AddGreen(rect(0, 0, 10, 10))
	snap := a.Committed()
	snap.Green[0].Properties[geo.UIDProperty] = 99
	if UID(a.Committed().Green[0]) != 1 {
		t.Error("mutating a snapshot must not touch committed state")
	}
}

func TestClearCuts(t *testing.T) {
	a := New()
	_, _ = a.AddCut(rect(0, 0, 10, 10))
	_, _ = a.AddCut(rect(20, 0, 10, 10))
	a.ClearCuts()
	if n := len(a.Committed().Cuts); n != 0 {
		t.Errorf("expected no cuts, got %d", n)
	}
}

// --- totals ---

func TestComputeTotals(t *testing.T) {
	s := Snapshot{
		Green: []*geojson.Feature{geojson.NewFeature(rect(0, 0, 100, 100))},
		Cuts:  []*geojson.Feature{geojson.NewFeature(rect(10, 10, 20, 20))},
	}
	got := ComputeTotals(s)
	if !approxEqual(got.GreenM2, 10000, 10) {
		t.Errorf("green = %.1f", got.GreenM2)
	}
	if !approxEqual(got.CutM2, 400, 1) {
		t.Errorf("cut = %.1f", got.CutM2)
	}
	if !approxEqual(got.CutPercent, 4, 0.01) {
		t.Errorf("percent = %.3f", got.CutPercent)
	}
}

func TestComputeTotalsNoGreen(t *testing.T) {
	got := ComputeTotals(Snapshot{Cuts: []*geojson.Feature{geojson.NewFeature(rect(0, 0, 10, 10))}})
	if got.CutPercent != 0 {
		t.Errorf("percent without green must be 0, got %v", got.CutPercent)
	}
}

// --- report ---

func TestReportFlagsOrphanCuts(t *testing.T) {
	a := New()
	_, _ = a.AddGreen(rect(0, 0, 100, 100))
	_, _ = a.AddCut(rect(10, 10, 10, 10))
	orphan, _ := a.AddCut(rect(500, 500, 10, 10))

	r := a.Report()
	if len(r.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", r.Warnings)
	}
	if r.Warnings[0].FeatureUID != orphan {
		t.Errorf("warning for uid %d, want %d", r.Warnings[0].FeatureUID, orphan)
	}
	if len(r.Info) != 1 {
		t.Errorf("expected a totals info entry, got %d", len(r.Info))
	}
}

func TestLimitErrorFinding(t *testing.T) {
	e := &LimitError{RemovedM2: 250, Percent: 25, Permitted: 20}
	res := e.Finding()
	if res.Path != "parameters.percent_permitido" {
		t.Errorf("path = %q", res.Path)
	}
	if res.Message != e.Error() {
		t.Errorf("message = %q", res.Message)
	}
}
