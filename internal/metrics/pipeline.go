package metrics

import "github.com/prometheus/client_golang/prometheus"

// Cache and pipeline Prometheus metrics.
var (
	CacheAccessTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stagegate",
			Name:      "cache_access_total",
			Help:      "Determinism cache accesses by mode and result",
		},
		[]string{"mode", "result"}, // mode: fetch/replay, result: hit/miss
	)

	ThemeScoreDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stagegate",
			Name:      "theme_score_duration_seconds",
			Help:      "Per-theme evidence extraction and scoring duration",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"theme"},
	)

	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stagegate",
			Name:      "pipeline_runs_total",
			Help:      "Completed scoring passes by outcome",
		},
		[]string{"status"}, // "ok" / "error"
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers cache and pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(CacheAccessTotal)
	prometheus.MustRegister(ThemeScoreDuration)
	prometheus.MustRegister(PipelineRunsTotal)
	pipelineMetricsRegistered = true
}
