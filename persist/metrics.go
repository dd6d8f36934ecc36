package persist

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recordstore_saves_total",
			Help: "Number of completed saves by outcome",
		},
		[]string{"outcome"},
	)
	metricSaveFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "recordstore_save_failed_total",
			Help: "Number of saves that surfaced an error to the caller",
		},
	)
	metricCleanupRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "recordstore_cleanup_runs_total",
			Help: "Number of cleanup passes triggered by capacity rejections",
		},
	)
	metricEmergencyResets = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "recordstore_emergency_resets_total",
			Help: "Number of emergency resets to essential data only",
		},
	)
	metricLoadFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recordstore_load_fallbacks_total",
			Help: "Number of load fallbacks by stage",
		},
		[]string{"stage"},
	)
	metricLastSaveBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "recordstore_last_save_bytes",
			Help: "Encoded payload size of the last successful save",
		},
	)
	metricLastSaveChunks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "recordstore_last_save_chunks",
			Help: "Chunk count of the last successful save, 0 for single-key",
		},
	)
)

func init() {
	prometheus.MustRegister(metricSaves)
	prometheus.MustRegister(metricSaveFailed)
	prometheus.MustRegister(metricCleanupRuns)
	prometheus.MustRegister(metricEmergencyResets)
	prometheus.MustRegister(metricLoadFallbacks)
	prometheus.MustRegister(metricLastSaveBytes)
	prometheus.MustRegister(metricLastSaveChunks)
}
