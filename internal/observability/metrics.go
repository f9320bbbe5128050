package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation, capacity limits.
	HTTPRequestsInFlight prometheus.Gauge

	// Upstream weather API call rate by endpoint (current/forecast). Watch for: error vs success ratio.
	UpstreamCallsTotal *prometheus.CounterVec

	// Upstream API latency per request. Watch for: p95 > 2s (upstream degradation).
	UpstreamDuration *prometheus.HistogramVec

	// Retry attempts against the upstream API. High retries = unstable upstream.
	UpstreamRetriesTotal prometheus.Counter

	// Cache hits by kind (current/forecast).
	CacheHitsTotal *prometheus.CounterVec

	// Cache backend errors by operation (get/set).
	CacheErrorsTotal *prometheus.CounterVec

	// Synthetic fallback serves by kind. The availability-over-accuracy
	// tradeoff in action; a rising rate means the upstream is unhealthy.
	SyntheticFallbacksTotal *prometheus.CounterVec

	// Predictions generated (all synthetic by construction).
	PredictionsGeneratedTotal prometheus.Counter

	// Requested prediction horizon in days.
	PredictionDays prometheus.Histogram

	// Geocoding request rate by outcome.
	GeocodeRequestsTotal *prometheus.CounterVec

	// Time spent waiting on the 1s geocode spacing gate.
	GeocodeGateWaitSeconds prometheus.Histogram

	// Rate limit denials (429). Watch for: overload, capacity exceeded.
	RateLimitDeniedTotal prometheus.Counter

	// Batch fetches and locations dropped for partial failure.
	BatchFetchesTotal          prometheus.Counter
	BatchLocationsDroppedTotal prometheus.Counter

	// Cache warming runs, failures, and duration.
	CacheWarmingTotal           prometheus.Counter
	CacheWarmingErrorsTotal     prometheus.Counter
	CacheWarmingDurationSeconds prometheus.Histogram

	// Circuit breaker state (0=closed, 1=open, 2=half-open) and transitions.
	CircuitBreakerState            *prometheus.GaugeVec
	CircuitBreakerTransitionsTotal *prometheus.CounterVec
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	UpstreamCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamCallsTotal",
			Help: "Total number of upstream weather API calls",
		},
		[]string{"endpoint", "status"},
	)
	UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstreamDurationSeconds",
			Help:    "Upstream weather API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint", "status"},
	)
	UpstreamRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "upstreamRetriesTotal",
			Help: "Total number of retry attempts for upstream weather API calls",
		},
	)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Total number of cache hits by result kind",
		},
		[]string{"kind"},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheErrorsTotal",
			Help: "Cache backend errors by operation",
		},
		[]string{"op"},
	)
	SyntheticFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syntheticFallbacksTotal",
			Help: "Results served from the synthetic generator after upstream failure",
		},
		[]string{"kind"},
	)
	PredictionsGeneratedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "predictionsGeneratedTotal",
			Help: "Total number of multi-day predictions generated",
		},
	)
	PredictionDays = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "predictionDays",
			Help:    "Requested prediction horizon in days",
			Buckets: []float64{1, 3, 5, 7, 10, 14},
		},
	)
	GeocodeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocodeRequestsTotal",
			Help: "Total number of geocoding requests",
		},
		[]string{"status"},
	)
	GeocodeGateWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "geocodeGateWaitSeconds",
			Help:    "Time spent waiting on the geocode request spacing gate",
			Buckets: []float64{.01, .1, .25, .5, 1, 2, 5},
		},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	BatchFetchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "batchFetchesTotal",
			Help: "Total number of multi-location batch fetches",
		},
	)
	BatchLocationsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "batchLocationsDroppedTotal",
			Help: "Locations dropped from batch results after sub-fetch failure",
		},
	)
	CacheWarmingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingTotal",
			Help: "Total number of cache warming runs",
		},
	)
	CacheWarmingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingErrorsTotal",
			Help: "Cache warming runs that had at least one failure",
		},
	)
	CacheWarmingDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cacheWarmingDurationSeconds",
			Help:    "Cache warming run duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuitBreakerState",
			Help: "Circuit breaker state: 0=closed, 1=open, 2=half_open",
		},
		[]string{"component"},
	)
	CircuitBreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuitBreakerTransitionsTotal",
			Help: "Circuit breaker state transitions",
		},
		[]string{"component", "from", "to"},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		UpstreamCallsTotal, UpstreamDuration, UpstreamRetriesTotal,
		CacheHitsTotal, CacheErrorsTotal,
		SyntheticFallbacksTotal, PredictionsGeneratedTotal, PredictionDays,
		GeocodeRequestsTotal, GeocodeGateWaitSeconds,
		RateLimitDeniedTotal,
		BatchFetchesTotal, BatchLocationsDroppedTotal,
		CacheWarmingTotal, CacheWarmingErrorsTotal, CacheWarmingDurationSeconds,
		CircuitBreakerState, CircuitBreakerTransitionsTotal,
	)
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
