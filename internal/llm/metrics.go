package llm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CompletionsTotal counts completion calls made through a guarded client.
	// Labels: provider, result (success, error)
	CompletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mailflow",
			Subsystem: "llm",
			Name:      "completions_total",
			Help:      "Total number of completion calls by provider and result",
		},
		[]string{"provider", "result"},
	)

	// CompletionDuration tracks completion latency including retries.
	CompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mailflow",
			Subsystem: "llm",
			Name:      "completion_duration_seconds",
			Help:      "Duration of completion calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// NormalizeTotal counts which normalizer strategy recovered a value.
	// Labels: strategy (direct, collapsed, object_slice, array_slice, refused, failed)
	NormalizeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mailflow",
			Subsystem: "llm",
			Name:      "normalize_total",
			Help:      "Total number of normalizer outcomes by strategy",
		},
		[]string{"strategy"},
	)

	// ExtractionsTotal counts field extractor outcomes.
	// Labels: field, result (success, provider_error, provider_refused, malformed_output)
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mailflow",
			Subsystem: "llm",
			Name:      "extractions_total",
			Help:      "Total number of field extractions by field and result",
		},
		[]string{"field", "result"},
	)
)
