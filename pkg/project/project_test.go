package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
)

func TestLoadProject(t *testing.T) {
	p, err := LoadProject("testdata/basic")
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}

	if p.Name != "Loteamento Teste" {
		t.Errorf("name = %q", p.Name)
	}
	if p.RestricaoID != 42 || p.PlanoID != 7 {
		t.Errorf("ids = %d/%d, want 42/7", p.RestricaoID, p.PlanoID)
	}
	if p.Parameters.PercentPermitido != 10 {
		t.Errorf("percent_permitido = %v, want 10", p.Parameters.PercentPermitido)
	}
	if p.Parameters.DefaultStreetWidthM != 12 {
		t.Errorf("default_street_width_m = %v, want 12", p.Parameters.DefaultStreetWidthM)
	}
	if p.Parameters.Preview["lote_min_m2"] != 250 {
		t.Errorf("preview.lote_min_m2 = %v", p.Parameters.Preview["lote_min_m2"])
	}
	if p.Inputs.Ruas != "ruas.geojson" {
		t.Errorf("inputs.ruas = %q", p.Inputs.Ruas)
	}
}

func TestLoadProjectMissing(t *testing.T) {
	_, err := LoadProject("/nonexistent/path")
	if err == nil {
		t.Error("expected error for missing project directory")
	}
}

func TestLoadDefaultsStreetWidth(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("name: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := LoadProject(dir)
	if err != nil {
		t.Fatal(err)
	}
	if p.Parameters.DefaultStreetWidthM != DefaultStreetWidthM {
		t.Errorf("width = %v, want default", p.Parameters.DefaultStreetWidthM)
	}
}

func TestLoadData(t *testing.T) {
	p, err := LoadProject("testdata/basic")
	if err != nil {
		t.Fatal(err)
	}
	d, err := p.LoadData()
	if err != nil {
		t.Fatalf("LoadData failed: %v", err)
	}

	poly, ok := d.AOI.(orb.Polygon)
	if !ok {
		t.Fatalf("aoi type = %T, want Polygon", d.AOI)
	}
	if r := poly[0]; !r[0].Equal(r[len(r)-1]) {
		t.Error("aoi ring should be closed")
	}
	if len(d.Green) != 1 {
		t.Errorf("green count = %d, want 1", len(d.Green))
	}
	if len(d.Cuts) != 1 {
		t.Errorf("cut count = %d, want 1 (bare geometry)", len(d.Cuts))
	}
	if len(d.Streets) != 2 {
		t.Errorf("street count = %d, want 2", len(d.Streets))
	}
}

func TestParseFeaturesRejectsGarbage(t *testing.T) {
	if _, err := ParseFeatures([]byte(`{"type":"Nope"}`)); err == nil {
		t.Error("expected parse error")
	}
}
