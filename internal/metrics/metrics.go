// Package metrics registers the Prometheus collectors for the geometry
// pipeline and exposes the scrape handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ChainOutcomes counts which step of a fallback chain produced the result.
	// step is "none" when every step failed.
	ChainOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loteamento_chain_outcomes_total",
		Help: "Fallback chain results by chain and winning step",
	}, []string{"chain", "step"})
	Recomputes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loteamento_area_recomputes_total",
		Help: "Per-frame area total recomputations",
	})
	CoalescedTriggers = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loteamento_coalesced_triggers_total",
		Help: "Edit events absorbed by an already pending frame",
	})
	MaskBuilds = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loteamento_mask_builds_total",
		Help: "Street mask rebuilds",
	})
	MaskBuildDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "loteamento_mask_build_duration_ms",
		Help:    "Street mask rebuild duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	BuildableRejections = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loteamento_buildable_rejections_total",
		Help: "Buildable area generations rejected by the permitted cut percentage",
	})
	BackendRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loteamento_backend_requests_total",
		Help: "Backend API calls by operation and outcome",
	}, []string{"op", "outcome"})
)

func init() {
	prometheus.MustRegister(ChainOutcomes)
	prometheus.MustRegister(Recomputes)
	prometheus.MustRegister(CoalescedTriggers)
	prometheus.MustRegister(MaskBuilds)
	prometheus.MustRegister(MaskBuildDurationMs)
	prometheus.MustRegister(BuildableRejections)
	prometheus.MustRegister(BackendRequests)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler { return promhttp.Handler() }
