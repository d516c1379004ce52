package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// Weather lookups started, by trigger source. Watch for: traffic volume per entry point.
	QueriesTotal *prometheus.CounterVec

	// Orchestration outcomes. Watch for: superseded vs success ratio (users typing over
	// slow requests), failure spikes (upstream trouble).
	OutcomesTotal *prometheus.CounterVec

	// Cache hits for weather lookups. Hit rate = hits/(hits + network-bound runs).
	CacheHitsTotal prometheus.Counter

	// Retry attempts inside the orchestrator loop. Watch for: high retries = unstable upstream.
	RetriesTotal prometheus.Counter

	// Weather endpoint call rate by result. Watch for: error vs success ratio, abort volume.
	UpstreamCallsTotal *prometheus.CounterVec

	// Weather endpoint latency per call. Watch for: p95 > 2s (upstream degradation).
	UpstreamDuration *prometheus.HistogramVec

	adaptiveTimeoutOnce sync.Once
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherQueriesTotal",
			Help: "Total number of weather lookups started, by trigger",
		},
		[]string{"trigger"},
	)
	OutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherOutcomesTotal",
			Help: "Orchestration outcomes (hit, success, superseded, failure)",
		},
		[]string{"outcome"},
	)
	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Total number of report cache hits",
		},
	)
	RetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weatherApiRetriesTotal",
			Help: "Total number of retry attempts against the weather endpoint",
		},
	)
	UpstreamCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiCallsTotal",
			Help: "Total number of weather endpoint calls",
		},
		[]string{"status"},
	)
	UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherApiDurationSeconds",
			Help:    "Weather endpoint latency in seconds (per call)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)

	registry.MustRegister(
		QueriesTotal, OutcomesTotal, CacheHitsTotal, RetriesTotal,
		UpstreamCallsTotal, UpstreamDuration,
	)
}

// RegisterAdaptiveTimeoutGauge exposes the estimator's current per-call
// timeout. Call from main after the estimator is built.
func RegisterAdaptiveTimeoutGauge(current func() time.Duration) {
	adaptiveTimeoutOnce.Do(func() {
		registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "adaptiveTimeoutSeconds",
				Help: "Per-call timeout currently applied to weather endpoint requests",
			},
			func() float64 { return current().Seconds() },
		))
	})
}

// MetricsHandler returns the /metrics handler for the private registry.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
