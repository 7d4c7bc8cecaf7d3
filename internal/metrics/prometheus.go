package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics contains all Prometheus metrics for the log monitor
type PrometheusMetrics struct {
	// Ingestion metrics
	RecordsIngestedTotal     *prometheus.CounterVec
	IngestValidationFailures prometheus.Counter

	// Broadcast metrics
	BroadcastsTotal           prometheus.Counter
	BroadcastDeliveriesTotal  *prometheus.CounterVec
	SubscribersActive         prometheus.Gauge
	SubscribersConnectedTotal prometheus.Counter
	SubscribersPrunedTotal    prometheus.Counter

	// Storage metrics
	DatabaseOperationsTotal   *prometheus.CounterVec
	DatabaseOperationDuration *prometheus.HistogramVec

	// API metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Application health metrics
	ApplicationUptime prometheus.Gauge
	ComponentHealth   *prometheus.GaugeVec
	MemoryUsage       prometheus.Gauge
	GoroutineCount    prometheus.Gauge
}

// NewPrometheusMetrics creates and registers all Prometheus metrics
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		// Ingestion metrics
		RecordsIngestedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logmon_records_ingested_total",
				Help: "Total number of log records ingested",
			},
			[]string{"level", "source"},
		),

		IngestValidationFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "logmon_ingest_validation_failures_total",
				Help: "Total number of ingestion requests rejected for missing fields",
			},
		),

		// Broadcast metrics
		BroadcastsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "logmon_broadcasts_total",
				Help: "Total number of broadcast passes over the subscriber registry",
			},
		),

		BroadcastDeliveriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logmon_broadcast_deliveries_total",
				Help: "Total number of per-subscriber delivery attempts",
			},
			[]string{"status"},
		),

		SubscribersActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "logmon_subscribers_active",
				Help: "Number of currently registered live subscribers",
			},
		),

		SubscribersConnectedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "logmon_subscribers_connected_total",
				Help: "Total number of subscriber connections accepted",
			},
		),

		SubscribersPrunedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "logmon_subscribers_pruned_total",
				Help: "Total number of subscribers pruned after delivery failure",
			},
		),

		// Storage metrics
		DatabaseOperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logmon_database_operations_total",
				Help: "Total number of database operations",
			},
			[]string{"operation", "table", "status"},
		),

		DatabaseOperationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "logmon_database_operation_duration_seconds",
				Help:    "Duration of database operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "table"},
		),

		// API metrics
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logmon_http_requests_total",
				Help: "Total number of HTTP requests received",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "logmon_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Application health metrics
		ApplicationUptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "logmon_application_uptime_seconds",
				Help: "Application uptime in seconds",
			},
		),

		ComponentHealth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "logmon_component_health",
				Help: "Health status of application components (1=healthy, 0=unhealthy)",
			},
			[]string{"component"},
		),

		MemoryUsage: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "logmon_memory_usage_bytes",
				Help: "Current memory usage in bytes",
			},
		),

		GoroutineCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "logmon_goroutines",
				Help: "Number of running goroutines",
			},
		),
	}
}

// RecordIngested records an ingested log record
func (m *PrometheusMetrics) RecordIngested(level, source string) {
	m.RecordsIngestedTotal.WithLabelValues(level, source).Inc()
}

// RecordValidationFailure records a rejected ingestion request
func (m *PrometheusMetrics) RecordValidationFailure() {
	m.IngestValidationFailures.Inc()
}

// RecordBroadcast records the outcome of one broadcast pass
func (m *PrometheusMetrics) RecordBroadcast(delivered, dropped int) {
	m.BroadcastsTotal.Inc()
	m.BroadcastDeliveriesTotal.WithLabelValues("delivered").Add(float64(delivered))
	if dropped > 0 {
		m.BroadcastDeliveriesTotal.WithLabelValues("dropped").Add(float64(dropped))
	}
}

// UpdateSubscribersActive updates the active subscriber gauge
func (m *PrometheusMetrics) UpdateSubscribersActive(count int) {
	m.SubscribersActive.Set(float64(count))
}

// RecordSubscriberConnected records an accepted subscriber connection
func (m *PrometheusMetrics) RecordSubscriberConnected() {
	m.SubscribersConnectedTotal.Inc()
}

// RecordSubscriberPruned records a subscriber removed after delivery failure
func (m *PrometheusMetrics) RecordSubscriberPruned() {
	m.SubscribersPrunedTotal.Inc()
}

// RecordDatabaseOperation records a database operation
func (m *PrometheusMetrics) RecordDatabaseOperation(operation, table, status string, duration time.Duration) {
	m.DatabaseOperationsTotal.WithLabelValues(operation, table, status).Inc()
	m.DatabaseOperationDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordHTTPRequest records an HTTP request
func (m *PrometheusMetrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// UpdateApplicationUptime updates the application uptime metric
func (m *PrometheusMetrics) UpdateApplicationUptime(startTime time.Time) {
	m.ApplicationUptime.Set(time.Since(startTime).Seconds())
}

// UpdateComponentHealth updates the health status of a component
func (m *PrometheusMetrics) UpdateComponentHealth(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.ComponentHealth.WithLabelValues(component).Set(value)
}

// UpdateMemoryUsage updates the memory usage metric
func (m *PrometheusMetrics) UpdateMemoryUsage(bytes uint64) {
	m.MemoryUsage.Set(float64(bytes))
}

// UpdateGoroutineCount updates the goroutine count metric
func (m *PrometheusMetrics) UpdateGoroutineCount(count int) {
	m.GoroutineCount.Set(float64(count))
}
