package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EmailsProcessedTotal counts pipeline runs.
	// Labels: result (success, stage_errors, failed)
	EmailsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mailflow",
			Subsystem: "engine",
			Name:      "emails_processed_total",
			Help:      "Total number of per-email pipeline runs by result",
		},
		[]string{"result"},
	)

	// StageErrorsTotal counts stage-level failures.
	// Labels: stage (categorize, extract_actions, draft_reply)
	StageErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mailflow",
			Subsystem: "engine",
			Name:      "stage_errors_total",
			Help:      "Total number of pipeline stage failures by stage",
		},
		[]string{"stage"},
	)

	// PipelinesInFlight tracks pipelines currently running.
	PipelinesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mailflow",
			Subsystem: "engine",
			Name:      "pipelines_in_flight",
			Help:      "Number of per-email pipelines currently running",
		},
	)

	// BatchDuration tracks how long batch runs take.
	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mailflow",
			Subsystem: "engine",
			Name:      "batch_duration_seconds",
			Help:      "Duration of batch processing runs in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)
)
