// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
	OutcomeCached   = "cached"
)

var (
	PlacesRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tonarino_places_requests_total",
			Help: "Place API calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	PlacesDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tonarino_places_request_duration_seconds",
			Help:    "Place API call latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	CircuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tonarino_circuit_state",
			Help: "Circuit breaker state per upstream (0 closed, 1 open, 2 half-open)",
		},
		[]string{"upstream"},
	)

	DiscoveryCompetitors = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tonarino_discovery_competitors",
			Help:    "Competitors returned per discovery request",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 10},
		},
	)

	AICalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tonarino_ai_calls_total",
			Help: "Text generation calls by report step and outcome",
		},
		[]string{"step", "outcome"},
	)

	AIDefaults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tonarino_ai_defaults_total",
			Help: "Malformed AI responses replaced with default values",
		},
		[]string{"step"},
	)

	ReportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tonarino_report_duration_seconds",
			Help:    "End-to-end report generation time",
			Buckets: []float64{5, 15, 30, 45, 60, 90, 120, 180, 300},
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tonarino_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)
)
