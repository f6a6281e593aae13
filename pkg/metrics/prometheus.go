// Package metrics provides Prometheus metrics for the gradelens service.
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

// Manager manages all Prometheus metrics for the gradelens service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Analysis Metrics - what the service exists for
	analysesTotal        *prometheus.CounterVec
	analysisLatency      prometheus.Histogram
	analysisErrors       *prometheus.CounterVec
	recommendationBlocks *prometheus.CounterVec
	insightsTotal        prometheus.Counter
	reportsRendered      prometheus.Counter

	// Upload Metrics
	uploadsTotal *prometheus.CounterVec
	uploadBytes  prometheus.Histogram
	tableRows    prometheus.Histogram

	// Store Metrics - uploaded table storage
	storeTables    prometheus.Gauge
	storeEvictions *prometheus.CounterVec
	storeLatency   *prometheus.HistogramVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// VariableLabels lists the label names the recorders set per sample. A
// constant label with one of these names would fail registration.
var VariableLabels = []string{ //nolint:gochecknoglobals // read-only label catalogue
	"component", "endpoint", "error_type", "kind", "method",
	"operation", "outcome", "reason", "severity", "status_code",
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
		namespace:        "gradelens",
		subsystem:        "analysis",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval is how often gauge metrics should be refreshed by the caller.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// Enabled reports whether recording is switched on.
func (m *Manager) Enabled() bool { return m.enabled }

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.analysesTotal = auto.NewCounterVec(
		m.counterOpts("analyses_total", "Total number of analyses by result kind"),
		[]string{"kind"},
	)
	m.analysisLatency = auto.NewHistogram(
		m.histogramOpts("analysis_latency_milliseconds", "Analysis latency in milliseconds", m.histogramBuckets),
	)
	m.analysisErrors = auto.NewCounterVec(
		m.counterOpts("analysis_errors_total", "Total number of rejected analyses by reason"),
		[]string{"reason"},
	)
	m.recommendationBlocks = auto.NewCounterVec(
		m.counterOpts("recommendation_blocks_total", "Total number of recommendation blocks produced by result kind"),
		[]string{"kind"},
	)
	m.insightsTotal = auto.NewCounter(
		m.counterOpts("insights_total", "Total number of insight sentences produced"),
	)
	m.reportsRendered = auto.NewCounter(
		m.counterOpts("reports_rendered_total", "Total number of markdown reports rendered"),
	)

	m.uploadsTotal = auto.NewCounterVec(
		m.counterOpts("uploads_total", "Total number of table uploads by outcome"),
		[]string{"outcome"},
	)
	m.uploadBytes = auto.NewHistogram(
		m.histogramOpts("upload_size_bytes", "Size of uploaded CSV bodies in bytes",
			prometheus.ExponentialBuckets(256, 4, 8)),
	)
	m.tableRows = auto.NewHistogram(
		m.histogramOpts("table_rows", "Number of student rows per uploaded table",
			prometheus.ExponentialBuckets(1, 2, 12)),
	)

	m.storeTables = auto.NewGauge(
		m.gaugeOpts("store_tables", "Current number of tables held by the store"),
	)
	m.storeEvictions = auto.NewCounterVec(
		m.counterOpts("store_evictions_total", "Total number of tables evicted from the store by reason"),
		[]string{"reason"},
	)
	m.storeLatency = auto.NewHistogramVec(
		m.histogramOpts("store_latency_milliseconds", "Store operation latency in milliseconds", m.histogramBuckets),
		[]string{"operation"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Total number of errors by component"),
		[]string{"component", "error_type"},
	)
	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Total number of errors by type"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)
	m.errorLatency = auto.NewHistogramVec(
		m.histogramOpts("error_latency_milliseconds", "Latency of operations that resulted in errors", m.histogramBuckets),
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(
		m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"),
	)
	m.systemGoroutineCount = auto.NewGauge(
		m.gaugeOpts("system_goroutine_count", "Number of goroutines"),
	)
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}),
	)
}

// Analysis Metrics Functions.

// RecordAnalysis counts one analysis of the given kind and its latency.
func RecordAnalysis(kind string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.analysesTotal.WithLabelValues(kind).Inc()
	globalManager.analysisLatency.Observe(latencyMs)
}

// RecordAnalysisError counts a rejected analysis.
func RecordAnalysisError(reason string) {
	if !globalManager.enabled {
		return
	}
	globalManager.analysisErrors.WithLabelValues(reason).Inc()
}

// RecordRecommendations counts the blocks produced for one result.
func RecordRecommendations(kind string, blocks int) {
	if !globalManager.enabled {
		return
	}
	globalManager.recommendationBlocks.WithLabelValues(kind).Add(float64(blocks))
}

// RecordInsights counts narrated sentences.
func RecordInsights(n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.insightsTotal.Add(float64(n))
}

// RecordReportRendered increments the rendered report counter.
func RecordReportRendered() {
	if !globalManager.enabled {
		return
	}
	globalManager.reportsRendered.Inc()
}

// Upload Metrics Functions.

// RecordUpload counts an upload attempt with its outcome ("ok" or an error type).
func RecordUpload(outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.uploadsTotal.WithLabelValues(outcome).Inc()
}

// RecordUploadSize observes the size of an uploaded body.
func RecordUploadSize(bytes int64) {
	if !globalManager.enabled {
		return
	}
	globalManager.uploadBytes.Observe(float64(bytes))
}

// RecordTableRows observes the row count of an accepted table.
func RecordTableRows(rows int) {
	if !globalManager.enabled {
		return
	}
	globalManager.tableRows.Observe(float64(rows))
}

// Store Metrics Functions.

// UpdateStoreTables sets the number of stored tables.
func UpdateStoreTables(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeTables.Set(float64(count))
}

// RecordStoreEviction counts an evicted table ("capacity" or "expired").
func RecordStoreEviction(reason string) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeEvictions.WithLabelValues(reason).Inc()
}

// RecordStoreLatency records store operation latency.
func RecordStoreLatency(operation string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// RefreshInterval returns the refresh interval of the global manager.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Configure rebuilds the global manager with opts on a fresh registry.
// It must run at startup, before handlers capture GetRegistry and before
// anything records; earlier samples are dropped with the old registry.
func Configure(opts ...Option) {
	customRegistry = prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(customRegistry))...)
}
