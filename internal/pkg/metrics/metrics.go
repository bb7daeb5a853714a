// Package metrics provides Prometheus metrics for clusteraudit scans.
// A single-pass audit has no scrape endpoint; metrics are pushed to a
// Pushgateway after the run when one is configured.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "clusteraudit"

var (
	// FindingsTotal counts findings by checker and nature.
	FindingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_total",
			Help:      "Total number of findings emitted, by checker and nature.",
		},
		[]string{"checker", "nature"},
	)

	// CheckerDurationSeconds is per-checker wall time.
	CheckerDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checker_duration_seconds",
			Help:      "Checker execution duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2.5, 10), // 10ms to ~95s
		},
		[]string{"checker"},
	)

	// CheckersSkippedTotal counts checkers that could not run (CRDs absent, list forbidden).
	CheckersSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkers_skipped_total",
			Help:      "Total number of checker runs skipped, by checker.",
		},
		[]string{"checker"},
	)

	// ScanDurationSeconds is whole-scan wall time.
	ScanDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Whole scan duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to 64s
		},
	)

	// APIRequestRetriesTotal counts retried Kubernetes API calls (429/5xx).
	APIRequestRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_request_retries_total",
			Help:      "Total number of retried Kubernetes API requests.",
		},
	)

	// ReferenceCacheHitsTotal counts memoized reference resolutions.
	ReferenceCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reference_cache_hits_total",
			Help:      "Total number of reference resolutions served from cache.",
		},
	)

	// ReferenceCacheMissesTotal counts reference resolutions that hit the API.
	ReferenceCacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reference_cache_misses_total",
			Help:      "Total number of reference resolutions that queried the cluster.",
		},
	)

	// CircuitBreakerState is the current breaker state (0=closed, 1=open, 2=half-open).
	CircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state for cluster API calls (0=closed, 1=open, 2=half-open).",
		},
	)

	// CircuitBreakerTransitionsTotal counts breaker state transitions.
	CircuitBreakerTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_transitions_total",
			Help:      "Total number of circuit breaker state transitions.",
		},
		[]string{"from", "to"},
	)

	// CircuitBreakerFailuresTotal counts failures recorded by the breaker.
	CircuitBreakerFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_failures_total",
			Help:      "Total number of retryable failures recorded by the circuit breaker.",
		},
	)
)

// Push sends all registered metrics to a Pushgateway. Called once at the end
// of a run; a batch job cannot be scraped.
func Push(gatewayURL string) error {
	if gatewayURL == "" {
		return nil
	}
	if err := push.New(gatewayURL, "clusteraudit").
		Gatherer(prometheus.DefaultGatherer).
		Push(); err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
