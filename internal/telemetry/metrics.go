package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	ProviderErrors    *prometheus.CounterVec
	QuotesReturned    prometheus.Histogram
}

// NewMetrics creates and registers Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		OperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shipbridge_operations_total",
				Help: "Total engine operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		OperationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shipbridge_operation_duration_seconds",
				Help:    "Engine operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ProviderErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shipbridge_provider_errors_total",
				Help: "Total courier provider errors by provider and error type",
			},
			[]string{"provider", "error_type"},
		),
		QuotesReturned: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "shipbridge_quotes_returned",
				Help:    "Number of quotes returned per aggregation run",
				Buckets: []float64{0, 1, 2, 3, 4, 5},
			},
		),
	}
}

// RecordOperation records an engine operation metric.
func (m *Metrics) RecordOperation(operation, outcome string, duration float64) {
	m.OperationsTotal.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordProviderError records a courier provider error metric.
func (m *Metrics) RecordProviderError(provider, errorType string) {
	m.ProviderErrors.WithLabelValues(provider, errorType).Inc()
}
