// Package metrics provides Prometheus metrics for the cinematch service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the cinematch service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Recommendation metrics
	recommendations         *prometheus.CounterVec
	recommendationLatency   prometheus.Histogram
	recommendationResults   prometheus.Histogram
	candidatesSkipped       prometheus.Counter
	candidatesExamined      prometheus.Counter
	catalogEntries          prometheus.Gauge
	catalogLoaded           prometheus.Gauge
	artifactDownloads       *prometheus.CounterVec
	artifactDownloadLatency prometheus.Histogram

	// Gateway metrics
	gatewayRequests     *prometheus.CounterVec
	gatewayLatency      *prometheus.HistogramVec
	memoLookups         *prometheus.CounterVec
	breakerState        *prometheus.GaugeVec
	breakerTransitions  *prometheus.CounterVec
	rateLimiterRejected prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "cinematch",
		subsystem:        "recommender",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.recommendations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("recommendations_total"),
		Help: "Recommendation requests by outcome (ok, not_found, unavailable)",
	}, []string{"outcome"})

	m.recommendationLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("recommendation_latency_milliseconds"),
		Help:    "End-to-end recommendation latency in milliseconds, gateway calls included",
		Buckets: m.histogramBuckets,
	})

	m.recommendationResults = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("recommendation_results"),
		Help:    "Number of results returned per recommendation",
		Buckets: []float64{0, 1, 2, 3, 4, 5, 10},
	})

	m.candidatesSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("candidates_skipped_total"),
		Help: "Ranked candidates dropped because no poster was available",
	})

	m.candidatesExamined = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("candidates_examined_total"),
		Help: "Ranked candidates looked up through the metadata gateway",
	})

	m.catalogEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("catalog_entries"),
		Help: "Number of movies in the loaded catalog",
	})

	m.catalogLoaded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("catalog_loaded"),
		Help: "1 when catalog and similarity matrix loaded, 0 otherwise",
	})

	m.artifactDownloads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("artifact_downloads_total"),
		Help: "Artifact bootstrap attempts by outcome (present, downloaded, failed, skipped)",
	}, []string{"outcome"})

	m.artifactDownloadLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("artifact_download_latency_milliseconds"),
		Help:    "Artifact download latency in milliseconds",
		Buckets: m.histogramBuckets,
	})

	m.gatewayRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("gateway_requests_total"),
		Help: "Metadata gateway lookups by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	m.gatewayLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("gateway_latency_milliseconds"),
		Help:    "Upstream metadata call latency in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint"})

	m.memoLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("memo_lookups_total"),
		Help: "Memo lookups by memo name and result (hit, miss)",
	}, []string{"memo", "result"})

	m.breakerState = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("circuit_breaker_state"),
		Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
	}, []string{"name"})

	m.breakerTransitions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("circuit_breaker_transitions_total"),
		Help: "Circuit breaker state transitions",
	}, []string{"name", "from", "to"})

	m.rateLimiterRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("gateway_rate_limited_total"),
		Help: "Upstream calls abandoned because the rate limiter wait exceeded the deadline",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("http_requests_total"),
		Help: "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("http_request_duration_milliseconds"),
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("errors_by_type_total"),
		Help: "Total number of errors by type",
	}, []string{"error_type", "severity"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("errors_by_endpoint_total"),
		Help: "Total number of errors by endpoint",
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("system_memory_usage_bytes"),
		Help: "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("system_goroutine_count"),
		Help: "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("system_gc_pause_time_milliseconds"),
		Help:    "GC pause time in milliseconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordRecommendation counts one recommendation request by outcome.
func RecordRecommendation(outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.recommendations.WithLabelValues(outcome).Inc()
}

// RecordRecommendationLatency records end-to-end recommendation latency.
func RecordRecommendationLatency(latencyMs float64) {
	globalManager.recommendationLatency.Observe(latencyMs)
}

// RecordRecommendationResults records how many results one request returned.
func RecordRecommendationResults(n int) {
	globalManager.recommendationResults.Observe(float64(n))
}

// RecordCandidateSkipped counts a posterless candidate.
func RecordCandidateSkipped() {
	globalManager.candidatesSkipped.Inc()
}

// RecordCandidateExamined counts a candidate looked up through the gateway.
func RecordCandidateExamined() {
	globalManager.candidatesExamined.Inc()
}

// UpdateCatalogEntries sets the catalog size gauge.
func UpdateCatalogEntries(n int) {
	globalManager.catalogEntries.Set(float64(n))
}

// UpdateCatalogLoaded flags whether the lookup tables are available.
func UpdateCatalogLoaded(loaded bool) {
	v := 0.0
	if loaded {
		v = 1
	}
	globalManager.catalogLoaded.Set(v)
}

// RecordArtifactDownload counts an artifact bootstrap attempt.
func RecordArtifactDownload(outcome string) {
	globalManager.artifactDownloads.WithLabelValues(outcome).Inc()
}

// RecordArtifactDownloadLatency records artifact download latency.
func RecordArtifactDownloadLatency(latencyMs float64) {
	globalManager.artifactDownloadLatency.Observe(latencyMs)
}

// RecordGatewayRequest counts one gateway lookup.
func RecordGatewayRequest(endpoint, outcome string) {
	globalManager.gatewayRequests.WithLabelValues(endpoint, outcome).Inc()
}

// RecordGatewayLatency records latency of one upstream call.
func RecordGatewayLatency(endpoint string, latencyMs float64) {
	globalManager.gatewayLatency.WithLabelValues(endpoint).Observe(latencyMs)
}

// RecordMemoLookup counts a memo hit or miss.
func RecordMemoLookup(memo string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	globalManager.memoLookups.WithLabelValues(memo, result).Inc()
}

// UpdateCircuitBreakerState sets the breaker state gauge.
func UpdateCircuitBreakerState(name string, state float64) {
	globalManager.breakerState.WithLabelValues(name).Set(state)
}

// RecordCircuitBreakerTransition counts a breaker state change.
func RecordCircuitBreakerTransition(name, from, to string) {
	globalManager.breakerTransitions.WithLabelValues(name, from, to).Inc()
}

// RecordRateLimited counts an upstream call dropped by the limiter.
func RecordRateLimited() {
	globalManager.rateLimiterRejected.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByType records an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage updates the system memory usage metric.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount updates the goroutine count metric.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// RefreshInterval returns how often polled gauges such as the system metrics
// should be refreshed.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// SetRefreshInterval changes the refresh interval of the global manager.
// Non-positive values are ignored.
func SetRefreshInterval(interval time.Duration) {
	WithRefreshInterval(interval)(globalManager)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
