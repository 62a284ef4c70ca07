package validation

import (
	"fmt"
	"math"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/geo"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/project"
)

// ValidateProject checks the parameters and input paths of a loaded project
// before any geometry is read.
func ValidateProject(p *project.Project) *Report {
	r := NewReport()

	validateName(p, r)
	validateParameters(p, r)
	validateInputs(p, r)

	return r
}

func validateName(p *project.Project, r *Report) {
	if p.Name == "" {
		r.AddWarning(Result{
			Level:   LevelInput,
			Message: "project has no name",
			Path:    "name",
		})
	}
}

func validateParameters(p *project.Project, r *Report) {
	pp := p.Parameters
	if math.IsNaN(pp.PercentPermitido) || pp.PercentPermitido < 0 || pp.PercentPermitido > 100 {
		r.AddError(Result{
			Level:       LevelInput,
			Message:     fmt.Sprintf("percent_permitido %.2f is outside 0-100", pp.PercentPermitido),
			Path:        "parameters.percent_permitido",
			ActualValue: pp.PercentPermitido,
			Expected:    "0-100",
		})
	}
	if !(pp.DefaultStreetWidthM > 0) || math.IsInf(pp.DefaultStreetWidthM, 0) {
		r.AddError(Result{
			Level:       LevelInput,
			Message:     "default_street_width_m must be > 0",
			Path:        "parameters.default_street_width_m",
			ActualValue: pp.DefaultStreetWidthM,
			Expected:    "> 0",
		})
	}
	if pp.ExtendStreetsM < 0 {
		r.AddError(Result{
			Level:       LevelInput,
			Message:     "extend_streets_m must not be negative",
			Path:        "parameters.extend_streets_m",
			ActualValue: pp.ExtendStreetsM,
			Expected:    ">= 0",
		})
	}
}

func validateInputs(p *project.Project, r *Report) {
	if p.Inputs.AreasVerdes == "" {
		r.AddWarning(Result{
			Level:       LevelInput,
			Message:     "no areas_verdes input; the buildable area cannot be generated",
			Path:        "inputs.areas_verdes",
			Suggestions: []string{"Draw green areas in the editor or point inputs.areas_verdes at a GeoJSON file"},
		})
	}
	if p.Inputs.AOI == "" {
		r.AddInfo(Result{
			Level:   LevelInput,
			Message: "no AOI; the street mask will not be clipped",
			Path:    "inputs.aoi",
		})
	}

	paths := map[string]string{
		"inputs.aoi":          p.Inputs.AOI,
		"inputs.areas_verdes": p.Inputs.AreasVerdes,
		"inputs.cortes":       p.Inputs.Cortes,
		"inputs.ruas":         p.Inputs.Ruas,
	}
	for field, rel := range paths {
		if rel == "" {
			continue
		}
		if _, err := os.Stat(p.Path(rel)); err != nil {
			r.AddError(Result{
				Level:       LevelInput,
				Message:     fmt.Sprintf("cannot read %s", rel),
				Path:        field,
				ActualValue: rel,
			})
		}
	}
}

// ValidateData checks the geometry types of loaded inputs. Features of the
// wrong type are reported, not repaired.
func ValidateData(d *project.Data) *Report {
	r := NewReport()

	checkPolygons("areas_verdes", d.Green, r)
	checkPolygons("cortes", d.Cuts, r)

	for i, f := range d.Streets {
		switch f.Geometry.(type) {
		case orb.LineString, orb.MultiLineString:
		default:
			r.AddError(Result{
				Level:       LevelGeometry,
				Message:     fmt.Sprintf("ruas[%d] is a %s, expected a line", i, geometryType(f.Geometry)),
				Path:        fmt.Sprintf("ruas[%d]", i),
				ActualValue: geometryType(f.Geometry),
				Expected:    "LineString or MultiLineString",
			})
		}
	}
	return r
}

func checkPolygons(name string, feats []*geojson.Feature, r *Report) {
	for i, f := range feats {
		if !geo.IsPolygonal(f.Geometry) {
			r.AddError(Result{
				Level:       LevelGeometry,
				Message:     fmt.Sprintf("%s[%d] is a %s, expected a polygon", name, i, geometryType(f.Geometry)),
				Path:        fmt.Sprintf("%s[%d]", name, i),
				ActualValue: geometryType(f.Geometry),
				Expected:    "Polygon or MultiPolygon",
			})
			continue
		}
		if geo.AreaM2(f.Geometry) <= 0 {
			r.AddWarning(Result{
				Level:   LevelGeometry,
				Message: fmt.Sprintf("%s[%d] has no area", name, i),
				Path:    fmt.Sprintf("%s[%d]", name, i),
			})
		}
	}
}

func geometryType(g orb.Geometry) string {
	if g == nil {
		return "null geometry"
	}
	return g.GeoJSONType()
}
