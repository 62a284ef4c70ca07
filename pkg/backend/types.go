package backend

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/project"
)

// Bundle is the restriction geometry of a project as served by
// GET /restricoes/{id}/geo/. Every entry is normalised to a collection.
type Bundle struct {
	AOI          *geojson.FeatureCollection
	AreaLoteavel *geojson.FeatureCollection
	AV           *geojson.FeatureCollection
	CorteAV      *geojson.FeatureCollection
	RuasMask     *geojson.FeatureCollection
	RuasEixo     *geojson.FeatureCollection

	// Layers holds the rios_*, lt_* and ferrovias_* entries by key.
	Layers map[string]*geojson.FeatureCollection
}

var layerPrefixes = []string{"rios_", "lt_", "ferrovias_"}

// DecodeBundle parses a restriction bundle. Null or missing entries stay nil;
// unrecognised keys are ignored.
func DecodeBundle(data []byte) (*Bundle, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding bundle: %w", err)
	}

	b := &Bundle{Layers: make(map[string]*geojson.FeatureCollection)}
	fixed := map[string]**geojson.FeatureCollection{
		"aoi":           &b.AOI,
		"area_loteavel": &b.AreaLoteavel,
		"av":            &b.AV,
		"corte_av":      &b.CorteAV,
		"ruas_mask":     &b.RuasMask,
		"ruas_eixo":     &b.RuasEixo,
	}
	for key, msg := range raw {
		dst, known := fixed[key]
		if !known && !isLayerKey(key) {
			continue
		}
		fc, err := normalize(msg)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", key, err)
		}
		if fc == nil {
			continue
		}
		if known {
			*dst = fc
		} else {
			b.Layers[key] = fc
		}
	}
	return b, nil
}

// MarshalJSON writes the bundle back in the wire shape.
func (b *Bundle) MarshalJSON() ([]byte, error) {
	out := map[string]*geojson.FeatureCollection{}
	put := func(k string, fc *geojson.FeatureCollection) {
		if fc != nil {
			out[k] = fc
		}
	}
	put("aoi", b.AOI)
	put("area_loteavel", b.AreaLoteavel)
	put("av", b.AV)
	put("corte_av", b.CorteAV)
	put("ruas_mask", b.RuasMask)
	put("ruas_eixo", b.RuasEixo)
	for k, fc := range b.Layers {
		put(k, fc)
	}
	return json.Marshal(out)
}

func isLayerKey(k string) bool {
	for _, p := range layerPrefixes {
		if strings.HasPrefix(k, p) {
			return true
		}
	}
	return false
}

// normalize turns a Feature, FeatureCollection or bare geometry into a
// collection. JSON null yields nil.
func normalize(msg json.RawMessage) (*geojson.FeatureCollection, error) {
	if len(msg) == 0 || string(msg) == "null" {
		return nil, nil
	}
	feats, err := project.ParseFeatures(msg)
	if err != nil {
		return nil, err
	}
	fc := geojson.NewFeatureCollection()
	fc.Features = feats
	return fc, nil
}

// PreviewRequest is the body of POST /parcelamento/planos/{id}/preview/.
type PreviewRequest struct {
	ALGeom *geojson.Geometry `json:"al_geom"`
	Params map[string]any    `json:"params"`
}

// PreviewResponse holds the generated layout. Collections may be nil when the
// backend omits them.
type PreviewResponse struct {
	Vias        *geojson.FeatureCollection
	ViasArea    *geojson.FeatureCollection
	Quarteiroes *geojson.FeatureCollection
	Lotes       *geojson.FeatureCollection
	Calcadas    *geojson.FeatureCollection
	Metrics     map[string]any
}

func decodePreview(data []byte) (*PreviewResponse, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding preview: %w", err)
	}
	out := &PreviewResponse{}
	fields := map[string]**geojson.FeatureCollection{
		"vias":        &out.Vias,
		"vias_area":   &out.ViasArea,
		"quarteiroes": &out.Quarteiroes,
		"lotes":       &out.Lotes,
		"calcadas":    &out.Calcadas,
	}
	for key, dst := range fields {
		fc, err := normalize(raw[key])
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", key, err)
		}
		*dst = fc
	}
	if m, ok := raw["metrics"]; ok && string(m) != "null" {
		if err := json.Unmarshal(m, &out.Metrics); err != nil {
			return nil, fmt.Errorf("decoding metrics: %w", err)
		}
	}
	return out, nil
}

// MaterializeRequest is the body of POST /parcelamento/planos/{id}/materializar/.
type MaterializeRequest struct {
	ALGeom    *geojson.Geometry `json:"al_geom"`
	Params    map[string]any    `json:"params"`
	Nota      string            `json:"nota,omitempty"`
	IsOficial bool              `json:"is_oficial"`
	UserEdits map[string]any    `json:"user_edits,omitempty"`
}

type MaterializeResponse struct {
	VersaoID int            `json:"versao_id"`
	Metrics  map[string]any `json:"metrics"`
}
