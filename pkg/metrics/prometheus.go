// Package metrics provides Prometheus metrics for the standings board service.
package metrics

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Refresh pipeline
	refreshes       *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	fetchDuration   *prometheus.HistogramVec
	fetchErrors     *prometheus.CounterVec
	parseErrors     *prometheus.CounterVec
	datasetRows     *prometheus.GaugeVec
	datasetStale    *prometheus.GaugeVec
	datasetSuccess  *prometheus.GaugeVec

	// Board and view
	renders        prometheus.Counter
	leaderChanges  *prometheus.CounterVec
	rotations      prometheus.Counter
	selections     *prometheus.CounterVec
	configErrors   prometheus.Counter
	configReloads  *prometheus.CounterVec
	scrollRestarts *prometheus.CounterVec

	// Alert queue and sinks
	queueSize       prometheus.Gauge
	queueCapacity   prometheus.Gauge
	queueEnqueued   prometheus.Counter
	queueDropped    *prometheus.CounterVec
	alertsDelivered *prometheus.CounterVec
	alertErrors     *prometheus.CounterVec

	// Display push
	wsClients    prometheus.Gauge
	wsBroadcasts *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "standings",
		subsystem:        "board",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
		Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.refreshes = m.counterVec("refreshes_total", "Refresh ticks completed, by outcome (ok, partial, failed)", "outcome")
	m.refreshDuration = m.histogram("refresh_duration_milliseconds", "Wall time of one refresh tick across all datasets", m.histogramBuckets)
	m.fetchDuration = m.histogramVec("fetch_duration_milliseconds", "Fetch latency per dataset", "dataset")
	m.fetchErrors = m.counterVec("fetch_errors_total", "Failed dataset fetches", "dataset")
	m.parseErrors = m.counterVec("parse_errors_total", "Rows dropped while parsing a dataset", "dataset")
	m.datasetRows = m.gaugeVec("dataset_rows", "Rows held for each dataset", "dataset")
	m.datasetStale = m.gaugeVec("dataset_stale", "1 when the dataset is served from a previous fetch", "dataset")
	m.datasetSuccess = m.gaugeVec("dataset_last_success_unixtime", "Unix time of the last successful fetch", "dataset")

	m.renders = m.counter("renders_total", "Boards rendered for the current view")
	m.leaderChanges = m.counterVec("leader_changes_total", "Rank-one identity changes detected", "dataset", "mode")
	m.rotations = m.counter("rotations_total", "Automatic view rotations")
	m.selections = m.counterVec("selections_total", "Accepted user selections, by kind (mode, dataset)", "kind")
	m.configErrors = m.counter("config_errors_total", "Rejected view selections")
	m.configReloads = m.counterVec("config_reloads_total", "Configuration file reloads, by outcome", "outcome")
	m.scrollRestarts = m.counterVec("scroll_restarts_total", "Scroll animation restarts, by outcome (started, skipped)", "outcome")

	m.queueSize = m.gauge("alert_queue_size", "Leader alerts waiting for delivery")
	m.queueCapacity = m.gauge("alert_queue_capacity", "Capacity of the leader alert queue")
	m.queueEnqueued = m.counter("alert_queue_enqueued_total", "Leader alerts accepted by the queue")
	m.queueDropped = m.counterVec("alert_queue_dropped_total", "Leader alerts dropped, by reason", "reason")
	m.alertsDelivered = m.counterVec("alerts_delivered_total", "Leader alerts delivered, by sink", "sink")
	m.alertErrors = m.counterVec("alert_errors_total", "Leader alert delivery failures, by sink", "sink")

	m.wsClients = m.gauge("websocket_clients", "Connected display clients")
	m.wsBroadcasts = m.counterVec("websocket_broadcasts_total", "Messages broadcast to display clients, by event", "event")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint", "endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds", "Latency of operations that failed", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Refresh pipeline.

// RecordRefresh counts a completed refresh tick.
func RecordRefresh(outcome string) {
	globalManager.refreshes.WithLabelValues(outcome).Inc()
}

// RecordRefreshDuration records the wall time of a refresh tick.
func RecordRefreshDuration(durationMs float64) {
	globalManager.refreshDuration.Observe(durationMs)
}

// RecordFetchDuration records one dataset fetch.
func RecordFetchDuration(dataset string, durationMs float64) {
	globalManager.fetchDuration.WithLabelValues(dataset).Observe(durationMs)
}

// RecordFetchError counts a failed fetch.
func RecordFetchError(dataset string) {
	globalManager.fetchErrors.WithLabelValues(dataset).Inc()
}

// RecordParseErrors adds n dropped rows for dataset.
func RecordParseErrors(dataset string, n int) {
	if n <= 0 {
		return
	}
	globalManager.parseErrors.WithLabelValues(dataset).Add(float64(n))
}

// UpdateDatasetRows sets the row count held for dataset.
func UpdateDatasetRows(dataset string, rows int) {
	globalManager.datasetRows.WithLabelValues(dataset).Set(float64(rows))
}

// UpdateDatasetStale flags whether dataset is served from an older fetch.
func UpdateDatasetStale(dataset string, stale bool) {
	v := 0.0
	if stale {
		v = 1
	}
	globalManager.datasetStale.WithLabelValues(dataset).Set(v)
}

// UpdateDatasetLastSuccess records the time of the last good fetch.
func UpdateDatasetLastSuccess(dataset string, at time.Time) {
	globalManager.datasetSuccess.WithLabelValues(dataset).Set(float64(at.Unix()))
}

// Board and view.

// RecordRender counts a rendered board.
func RecordRender() {
	globalManager.renders.Inc()
}

// RecordLeaderChange counts a detected leader change.
func RecordLeaderChange(dataset, mode string) {
	globalManager.leaderChanges.WithLabelValues(dataset, mode).Inc()
}

// RecordRotation counts an automatic view rotation.
func RecordRotation() {
	globalManager.rotations.Inc()
}

// RecordSelection counts an accepted selection of the given kind.
func RecordSelection(kind string) {
	globalManager.selections.WithLabelValues(kind).Inc()
}

// RecordConfigError counts a rejected selection.
func RecordConfigError() {
	globalManager.configErrors.Inc()
}

// RecordConfigReload counts a configuration reload attempt.
func RecordConfigReload(ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	globalManager.configReloads.WithLabelValues(outcome).Inc()
}

// RecordScrollRestart counts a scroll restart; active is false when it was skipped.
func RecordScrollRestart(active bool) {
	outcome := "started"
	if !active {
		outcome = "skipped"
	}
	globalManager.scrollRestarts.WithLabelValues(outcome).Inc()
}

// Alert queue and sinks.

// UpdateQueueSize sets the current alert queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the alert queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts an accepted alert.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDrop counts a dropped alert.
func RecordQueueDrop(reason string) {
	globalManager.queueDropped.WithLabelValues(reason).Inc()
}

// RecordAlertDelivered counts a delivered alert.
func RecordAlertDelivered(sink string) {
	globalManager.alertsDelivered.WithLabelValues(sink).Inc()
}

// RecordAlertError counts a failed delivery.
func RecordAlertError(sink string) {
	globalManager.alertErrors.WithLabelValues(sink).Inc()
}

// Display push.

// UpdateWebSocketClients sets the number of connected display clients.
func UpdateWebSocketClients(n int) {
	globalManager.wsClients.Set(float64(n))
}

// RecordWebSocketBroadcast counts a broadcast message.
func RecordWebSocketBroadcast(event string) {
	globalManager.wsBroadcasts.WithLabelValues(event).Inc()
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Errors.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Sum gathers the registry and adds up every sample of the family whose name
// ends with suffix. Counters, gauges and untyped samples are summed; histograms
// contribute their sample count. A missing family sums to 0.
func Sum(suffix string) (float64, error) {
	families, err := customRegistry.Gather()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrGather, err)
	}
	var total float64
	for _, mf := range families {
		if !strings.HasSuffix(mf.GetName(), suffix) {
			continue
		}
		total += sumFamily(mf)
	}
	return total, nil
}

func sumFamily(mf *dto.MetricFamily) float64 {
	var total float64
	for _, m := range mf.GetMetric() {
		switch mf.GetType() {
		case dto.MetricType_COUNTER:
			total += m.GetCounter().GetValue()
		case dto.MetricType_GAUGE:
			total += m.GetGauge().GetValue()
		case dto.MetricType_HISTOGRAM:
			total += float64(m.GetHistogram().GetSampleCount())
		default:
			total += m.GetUntyped().GetValue()
		}
	}
	return total
}

// WriteText writes the registry in the Prometheus text exposition format.
func WriteText(w io.Writer) error {
	families, err := customRegistry.Gather()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGather, err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("%w: %v", ErrGather, err)
		}
	}
	return nil
}
