// Package project loads loteamento.yaml project files and the GeoJSON inputs
// they reference.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"gopkg.in/yaml.v3"

	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/geo"
)

// DefaultStreetWidthM applies when the project file leaves the width unset.
const DefaultStreetWidthM = 12.0

// Load reads a project from a YAML file.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project file: %w", err)
	}

	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing project YAML: %w", err)
	}
	if p.Parameters.DefaultStreetWidthM == 0 {
		p.Parameters.DefaultStreetWidthM = DefaultStreetWidthM
	}
	p.Dir = filepath.Dir(path)

	return &p, nil
}

// LoadProject loads a project from a project directory.
// It looks for loteamento.yaml in the given directory.
func LoadProject(projectDir string) (*Project, error) {
	return Load(filepath.Join(projectDir, FileName))
}

// Path resolves an input path against the project directory.
func (p *Project) Path(rel string) string {
	if rel == "" || filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.Dir, rel)
}

// LoadData reads every configured input. Unset inputs stay empty.
func (p *Project) LoadData() (*Data, error) {
	d := &Data{}
	var err error

	if p.Inputs.AOI != "" {
		feats, err := ReadFeatures(p.Path(p.Inputs.AOI))
		if err != nil {
			return nil, fmt.Errorf("loading aoi: %w", err)
		}
		if d.AOI, err = mergeAOI(feats); err != nil {
			return nil, fmt.Errorf("loading aoi: %w", err)
		}
	}
	if d.Green, err = p.readOptional(p.Inputs.AreasVerdes); err != nil {
		return nil, fmt.Errorf("loading areas_verdes: %w", err)
	}
	if d.Cuts, err = p.readOptional(p.Inputs.Cortes); err != nil {
		return nil, fmt.Errorf("loading cortes: %w", err)
	}
	if d.Streets, err = p.readOptional(p.Inputs.Ruas); err != nil {
		return nil, fmt.Errorf("loading ruas: %w", err)
	}
	return d, nil
}

func (p *Project) readOptional(rel string) ([]*geojson.Feature, error) {
	if rel == "" {
		return nil, nil
	}
	return ReadFeatures(p.Path(rel))
}

// ReadFeatures reads a GeoJSON file holding a FeatureCollection, a single
// Feature or a bare geometry.
func ReadFeatures(path string) ([]*geojson.Feature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFeatures(data)
}

// ParseFeatures decodes GeoJSON bytes into features. See ReadFeatures.
func ParseFeatures(data []byte) ([]*geojson.Feature, error) {
	if fc, err := geojson.UnmarshalFeatureCollection(data); err == nil && fc.Type == "FeatureCollection" {
		return fc.Features, nil
	}
	if f, err := geojson.UnmarshalFeature(data); err == nil && f.Type == "Feature" {
		return []*geojson.Feature{f}, nil
	}
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("parsing GeoJSON: %w", err)
	}
	return []*geojson.Feature{geojson.NewFeature(g.Geometry())}, nil
}

// mergeAOI folds the polygonal features of an AOI file into one geometry.
func mergeAOI(feats []*geojson.Feature) (orb.Geometry, error) {
	var mp orb.MultiPolygon
	for _, f := range feats {
		mp = append(mp, geo.Polygons(f.Geometry)...)
	}
	if len(mp) == 0 {
		return nil, geo.ErrNotPolygonal
	}
	f, err := geo.EnsureFeaturePolygon(geo.CloseRings(geo.Simplest(mp)))
	if err != nil {
		return nil, err
	}
	return f.Geometry, nil
}
