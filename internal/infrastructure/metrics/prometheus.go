package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusExporter exports request and session store metrics in Prometheus format.
// Session store series are read from the collector at scrape time.
type PrometheusExporter struct {
	grpcRequests *prometheus.CounterVec
	grpcDuration *prometheus.HistogramVec
	grpcErrors   *prometheus.CounterVec
}

// NewPrometheusExporter registers the propaccess series with reg.
func NewPrometheusExporter(collector *Collector, reg prometheus.Registerer) *PrometheusExporter {
	factory := promauto.With(reg)

	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "propaccess_session_store_hits_total",
		Help: "Total number of session lookups that found a live session",
	}, func() float64 { return float64(collector.GetSessionStoreMetrics().Hits) })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "propaccess_session_store_misses_total",
		Help: "Total number of session lookups for missing, revoked or expired sessions",
	}, func() float64 { return float64(collector.GetSessionStoreMetrics().Misses) })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "propaccess_session_store_evictions_total",
		Help: "Total number of sessions evicted due to memory limits",
	}, func() float64 { return float64(collector.GetSessionStoreMetrics().Evictions) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "propaccess_session_store_hit_rate",
		Help: "Current session lookup hit rate (0.0 to 1.0)",
	}, func() float64 { return collector.GetSessionStoreMetrics().HitRate })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "propaccess_session_store_keys_current",
		Help: "Current number of sessions held in process memory",
	}, func() float64 { return float64(collector.GetSessionStoreMetrics().KeysCurrent) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "propaccess_session_store_memory_bytes",
		Help: "Current estimated memory used by in-process sessions in bytes",
	}, func() float64 { return float64(collector.GetSessionStoreMetrics().MemoryBytes) })

	return &PrometheusExporter{
		grpcRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "propaccess_grpc_requests_total",
				Help: "Total number of gRPC requests",
			},
			[]string{"method"},
		),
		grpcDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "propaccess_grpc_request_duration_seconds",
				Help:    "Duration of gRPC requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
			},
			[]string{"method"},
		),
		grpcErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "propaccess_grpc_errors_total",
				Help: "Total number of failed gRPC requests by status code",
			},
			[]string{"method", "code"},
		),
	}
}

// RecordRequest records a request in Prometheus.
func (e *PrometheusExporter) RecordRequest(method string) {
	e.grpcRequests.WithLabelValues(method).Inc()
}

// RecordDuration records a duration in Prometheus.
func (e *PrometheusExporter) RecordDuration(method string, durationSeconds float64) {
	e.grpcDuration.WithLabelValues(method).Observe(durationSeconds)
}

// RecordError records a failed request in Prometheus.
func (e *PrometheusExporter) RecordError(method, code string) {
	e.grpcErrors.WithLabelValues(method, code).Inc()
}
