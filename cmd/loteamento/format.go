package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/paulmach/orb/geojson"

	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/backend"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/greenarea"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/validation"
)

func printValidationReport(r *validation.Report) {
	if len(r.Errors) > 0 {
		fmt.Printf("ERRORS (%d):\n", len(r.Errors))
		for _, e := range r.Errors {
			printResult(e)
		}
		fmt.Println()
	}

	if len(r.Warnings) > 0 {
		fmt.Printf("WARNINGS (%d):\n", len(r.Warnings))
		for _, w := range r.Warnings {
			printResult(w)
		}
		fmt.Println()
	}

	if len(r.Info) > 0 {
		fmt.Printf("INFO (%d):\n", len(r.Info))
		for _, i := range r.Info {
			fmt.Printf("  [%s] %s\n", i.Level, i.Message)
		}
		fmt.Println()
	}

	if r.Valid {
		fmt.Printf("Result: VALID (%s)\n", r.Summary)
	} else {
		fmt.Printf("Result: INVALID (%s)\n", r.Summary)
	}
}

func printResult(res validation.Result) {
	fmt.Printf("  [%s] %s\n", res.Level, res.Message)
	if res.Path != "" {
		fmt.Printf("    -> %s = %v\n", res.Path, res.ActualValue)
	}
	if res.FeatureUID != 0 {
		fmt.Printf("    feature: %d\n", res.FeatureUID)
	}
	if res.Expected != "" {
		fmt.Printf("    expected: %s\n", res.Expected)
	}
	for _, s := range res.Suggestions {
		fmt.Printf("    * %s\n", s)
	}
}

func printTotals(t greenarea.Totals) {
	fmt.Println("Area totals")
	fmt.Println("-----------")
	fmt.Printf("  Green area:   %22s m²\n", formatArea(t.GreenM2))
	fmt.Printf("  Cut area:     %22s m²\n", formatArea(t.CutM2))
	fmt.Printf("  Cut percent:  %22.2f %%\n", t.CutPercent)
}

func printBundleSummary(id int, b *backend.Bundle) {
	fmt.Printf("Restriction bundle %d\n", id)
	fmt.Println("=====================")
	rows := []struct {
		label string
		fc    *geojson.FeatureCollection
	}{
		{"aoi", b.AOI},
		{"area_loteavel", b.AreaLoteavel},
		{"av", b.AV},
		{"corte_av", b.CorteAV},
		{"ruas_mask", b.RuasMask},
		{"ruas_eixo", b.RuasEixo},
	}
	keys := make([]string, 0, len(b.Layers))
	for k := range b.Layers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, struct {
			label string
			fc    *geojson.FeatureCollection
		}{k, b.Layers[k]})
	}
	for _, row := range rows {
		fmt.Printf("  %-24s %s\n", row.label, featureCount(row.fc))
	}
}

func printPreviewSummary(r *backend.PreviewResponse) {
	fmt.Println("Layout preview")
	fmt.Println("--------------")
	fmt.Printf("  %-12s %s\n", "vias", featureCount(r.Vias))
	fmt.Printf("  %-12s %s\n", "vias_area", featureCount(r.ViasArea))
	fmt.Printf("  %-12s %s\n", "quarteiroes", featureCount(r.Quarteiroes))
	fmt.Printf("  %-12s %s\n", "lotes", featureCount(r.Lotes))
	fmt.Printf("  %-12s %s\n", "calcadas", featureCount(r.Calcadas))

	if len(r.Metrics) == 0 {
		return
	}
	fmt.Println()
	fmt.Println("Metrics")
	keys := make([]string, 0, len(r.Metrics))
	for k := range r.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-24s %v\n", k, r.Metrics[k])
	}
}

func featureCount(fc *geojson.FeatureCollection) string {
	if fc == nil {
		return "-"
	}
	return fmt.Sprintf("%d features", len(fc.Features))
}

func formatArea(v float64) string {
	if v >= 10_000 {
		return fmt.Sprintf("%.1f (%.2f ha)", v, v/10_000)
	}
	return fmt.Sprintf("%.1f", v)
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
