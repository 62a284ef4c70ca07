package greenarea

import (
	"fmt"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"

	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/geo"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/validation"
)

// boundsPad keeps rtree rectangles valid for points and axis-aligned lines.
const boundsPad = 1e-9

type greenEntry struct {
	uid  int
	geom orb.Geometry
	bbox rtreego.Rect
}

func (e *greenEntry) Bounds() rtreego.Rect { return e.bbox }

// Report lists findings about the committed state: cuts that touch no green
// area (they subtract nothing) and the current totals.
func (a *Aggregator) Report() *validation.Report {
	snap := a.Committed()
	r := validation.NewReport()

	tree := rtreego.NewTree(2, 25, 50)
	for _, f := range snap.Green {
		bbox, err := boundRect(f.Geometry.Bound())
		if err != nil {
			continue
		}
		tree.Insert(&greenEntry{uid: UID(f), geom: f.Geometry, bbox: bbox})
	}

	for i, c := range snap.Cuts {
		bbox, err := boundRect(c.Geometry.Bound())
		if err != nil {
			continue
		}
		overlaps := false
		for _, hit := range tree.SearchIntersect(bbox) {
			if geo.Intersects(hit.(*greenEntry).geom, c.Geometry) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			r.AddWarning(validation.Result{
				Level:       validation.LevelGeometry,
				Message:     fmt.Sprintf("corte %d does not overlap any área verde", UID(c)),
				Path:        fmt.Sprintf("cortes[%d]", i),
				FeatureUID:  UID(c),
				Suggestions: []string{"Move the cut inside a green area or remove it"},
			})
		}
	}

	t := ComputeTotals(snap)
	r.AddInfo(validation.Result{
		Level:       validation.LevelGeometry,
		Message:     fmt.Sprintf("green %.2f m², cuts %.2f m² (%.2f%%)", t.GreenM2, t.CutM2, t.CutPercent),
		Path:        "totals",
		ActualValue: t,
	})
	return r
}

func boundRect(b orb.Bound) (rtreego.Rect, error) {
	return rtreego.NewRect(
		rtreego.Point{b.Min[0] - boundsPad, b.Min[1] - boundsPad},
		[]float64{b.Max[0] - b.Min[0] + 2*boundsPad, b.Max[1] - b.Min[1] + 2*boundsPad},
	)
}
