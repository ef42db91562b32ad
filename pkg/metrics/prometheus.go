// Package metrics provides Prometheus metrics for the housecup scoreboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the scoreboard.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Scoring and reconciliation
	eventsRecorded      *prometheus.CounterVec
	eventsDuplicate     prometheus.Counter
	pointsAwarded       *prometheus.CounterVec
	unmatchedHouses     prometheus.Counter
	reconcileRuns       *prometheus.CounterVec
	reconcileDuration   prometheus.Histogram
	houseWrites         *prometheus.CounterVec
	versionConflicts    prometheus.Counter
	rankRepairs         prometheus.Counter
	reconcileQueueDepth prometheus.Gauge

	// Collection store
	storeOps         *prometheus.CounterVec
	storeOpLatency   *prometheus.HistogramVec
	snapshots        *prometheus.CounterVec
	subscriptions    prometheus.Gauge
	subscriptionErrs *prometheus.CounterVec

	// Live view
	houseCount    prometheus.Gauge
	viewLoading   prometheus.Gauge
	viewWatchers  prometheus.Gauge
	blobUploads   *prometheus.CounterVec
	blobBytes     prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
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
		namespace:        "housecup",
		subsystem:        "scoreboard",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	m.eventsRecorded = m.counterVec("events_recorded_total", "Event results persisted, by result type", "type")
	m.eventsDuplicate = m.counter("events_duplicate_total", "Event submissions dropped by idempotency key")
	m.pointsAwarded = m.counterVec("points_awarded_total", "Points awarded to houses", "house")
	m.unmatchedHouses = m.counter("events_unmatched_house_total", "Event results whose house matched no known house")
	m.reconcileRuns = m.counterVec("reconcile_runs_total", "Reconciliation runs by mode and outcome", "mode", "outcome")
	m.reconcileDuration = m.histogram("reconcile_duration_milliseconds", "Reconciliation duration in milliseconds")
	m.houseWrites = m.counterVec("house_writes_total", "House field writes issued by reconciliation", "field")
	m.versionConflicts = m.counter("version_conflicts_total", "Version-guarded house writes that lost a race and retried")
	m.rankRepairs = m.counter("rank_repairs_total", "House ranks corrected by the repair sweep")
	m.reconcileQueueDepth = m.gauge("reconcile_queue_depth", "Event submissions waiting for the serialized reconciler")

	m.storeOps = m.counterVec("store_operations_total", "Collection store operations", "collection", "op", "outcome")
	m.storeOpLatency = m.histogramVec("store_operation_latency_milliseconds", "Collection store operation latency", "collection", "op")
	m.snapshots = m.counterVec("store_snapshots_delivered_total", "Snapshots pushed to subscribers", "collection")
	m.subscriptions = m.gauge("store_subscriptions_active", "Open collection subscriptions")
	m.subscriptionErrs = m.counterVec("store_subscription_errors_total", "Subscriptions that went inert after an error", "collection")

	m.houseCount = m.gauge("houses", "Houses in the live view")
	m.viewLoading = m.gauge("view_loading", "1 while the live view is waiting for its first snapshots")
	m.viewWatchers = m.gauge("view_watchers", "Live viewers attached to the aggregator")
	m.blobUploads = m.counterVec("blob_uploads_total", "Winner photo uploads by outcome", "outcome")
	m.blobBytes = m.counter("blob_upload_bytes_total", "Bytes uploaded to the blob store")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordEventRecorded counts a persisted event result.
func RecordEventRecorded(resultType string) {
	globalManager.eventsRecorded.WithLabelValues(resultType).Inc()
}

// RecordEventDuplicate counts a submission dropped by its idempotency key.
func RecordEventDuplicate() {
	globalManager.eventsDuplicate.Inc()
}

// RecordPointsAwarded adds points to the per-house counter.
func RecordPointsAwarded(house string, points int) {
	if points <= 0 {
		return
	}
	globalManager.pointsAwarded.WithLabelValues(house).Add(float64(points))
}

// RecordUnmatchedHouse counts an event whose house name matched nothing.
func RecordUnmatchedHouse() {
	globalManager.unmatchedHouses.Inc()
}

// RecordReconcile records one reconciliation run.
func RecordReconcile(mode string, durationMs float64, err error) {
	globalManager.reconcileRuns.WithLabelValues(mode, outcome(err)).Inc()
	globalManager.reconcileDuration.Observe(durationMs)
}

// RecordHouseWrite counts a single house field write.
func RecordHouseWrite(field string) {
	globalManager.houseWrites.WithLabelValues(field).Inc()
}

// RecordVersionConflict counts a lost optimistic write.
func RecordVersionConflict() {
	globalManager.versionConflicts.Inc()
}

// RecordRankRepairs adds the number of ranks corrected by a repair sweep.
func RecordRankRepairs(n int) {
	globalManager.rankRepairs.Add(float64(n))
}

// UpdateReconcileQueueDepth sets the pending submission count.
func UpdateReconcileQueueDepth(n int) {
	globalManager.reconcileQueueDepth.Set(float64(n))
}

// RecordStoreOp records a collection store operation and its latency.
func RecordStoreOp(collection, op string, latencyMs float64, err error) {
	globalManager.storeOps.WithLabelValues(collection, op, outcome(err)).Inc()
	globalManager.storeOpLatency.WithLabelValues(collection, op).Observe(latencyMs)
}

// RecordSnapshotDelivered counts a snapshot pushed to a subscriber.
func RecordSnapshotDelivered(collection string) {
	globalManager.snapshots.WithLabelValues(collection).Inc()
}

// AddActiveSubscriptions adjusts the open subscription gauge.
func AddActiveSubscriptions(delta int) {
	globalManager.subscriptions.Add(float64(delta))
}

// RecordSubscriptionError counts a subscription that went inert.
func RecordSubscriptionError(collection string) {
	globalManager.subscriptionErrs.WithLabelValues(collection).Inc()
}

// UpdateHouseCount sets the number of houses in the live view.
func UpdateHouseCount(n int) {
	globalManager.houseCount.Set(float64(n))
}

// UpdateViewLoading sets the loading gauge.
func UpdateViewLoading(loading bool) {
	v := 0.0
	if loading {
		v = 1
	}
	globalManager.viewLoading.Set(v)
}

// AddViewWatchers adjusts the live viewer gauge.
func AddViewWatchers(delta int) {
	globalManager.viewWatchers.Add(float64(delta))
}

// RecordBlobUpload records a photo upload.
func RecordBlobUpload(bytes int64, err error) {
	globalManager.blobUploads.WithLabelValues(outcome(err)).Inc()
	if err == nil && bytes > 0 {
		globalManager.blobBytes.Add(float64(bytes))
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
