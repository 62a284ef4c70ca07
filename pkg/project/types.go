package project

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FileName is the project file looked up in a project directory.
const FileName = "loteamento.yaml"

// Project is the top-level description of a subdivision project.
type Project struct {
	Name        string     `yaml:"name" json:"name"`
	RestricaoID int        `yaml:"restricao_id" json:"restricao_id,omitempty"`
	PlanoID     int        `yaml:"plano_id" json:"plano_id,omitempty"`
	Parameters  Parameters `yaml:"parameters" json:"parameters"`
	Inputs      Inputs     `yaml:"inputs" json:"inputs"`

	// Dir is the directory the project was loaded from; input paths are
	// relative to it.
	Dir string `yaml:"-" json:"-"`
}

type Parameters struct {
	PercentPermitido    float64 `yaml:"percent_permitido" json:"percent_permitido"`
	DefaultStreetWidthM float64 `yaml:"default_street_width_m" json:"default_street_width_m"`
	ExtendStreetsM      float64 `yaml:"extend_streets_m" json:"extend_streets_m"`

	// Preview is forwarded as-is in the params of preview and materialize
	// requests.
	Preview map[string]any `yaml:"preview" json:"preview,omitempty"`
}

// Inputs holds GeoJSON file paths.
type Inputs struct {
	AOI         string `yaml:"aoi" json:"aoi,omitempty"`
	AreasVerdes string `yaml:"areas_verdes" json:"areas_verdes,omitempty"`
	Cortes      string `yaml:"cortes" json:"cortes,omitempty"`
	Ruas        string `yaml:"ruas" json:"ruas,omitempty"`
}

// Data is the geometry referenced by a project's inputs, in lon/lat.
type Data struct {
	AOI     orb.Geometry
	Green   []*geojson.Feature
	Cuts    []*geojson.Feature
	Streets []*geojson.Feature
}
