// Package observability provides Prometheus metrics for the catalog service.
package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains the Prometheus collectors for catalog operations.
type Metrics struct {
	registry *prometheus.Registry

	importsTotal        *prometheus.CounterVec
	indicatorsImported  prometheus.Counter
	comparisonsTotal    *prometheus.CounterVec
	groupingDuration    *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	municipalitiesGauge prometheus.Gauge
}

// NewMetrics creates and registers the catalog metrics on a private registry.
func NewMetrics() (*Metrics, error) {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.importsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_imports_total",
			Help: "Total number of indicator set imports",
		},
		[]string{"status"}, // success, duplicate, invalid, error
	)

	m.indicatorsImported = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_indicators_imported_total",
			Help: "Total number of indicators imported",
		},
	)

	m.comparisonsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_comparisons_total",
			Help: "Total number of comparison queries",
		},
		[]string{"criterion"}, // nome, formula, hash
	)

	m.groupingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_grouping_duration_seconds",
			Help:    "Time taken to compute similarity groups",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"criterion"},
	)

	m.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_http_request_duration_seconds",
			Help:    "Time taken to serve HTTP requests",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path"},
	)

	m.municipalitiesGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_municipalities",
			Help: "Number of stored indicator sets",
		},
	)

	collectors := []prometheus.Collector{
		m.importsTotal,
		m.indicatorsImported,
		m.comparisonsTotal,
		m.groupingDuration,
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.municipalitiesGauge,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("registering catalog metrics: %w", err)
		}
	}

	return m, nil
}

// Handler returns an HTTP handler serving the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordImport counts one import attempt and, on success, its indicators.
func (m *Metrics) RecordImport(status string, indicators int) {
	m.importsTotal.WithLabelValues(status).Inc()
	if indicators > 0 {
		m.indicatorsImported.Add(float64(indicators))
	}
}

// RecordComparison counts one comparison query by criterion.
func (m *Metrics) RecordComparison(criterion string) {
	m.comparisonsTotal.WithLabelValues(criterion).Inc()
}

// RecordGrouping observes the duration of one similarity grouping query.
func (m *Metrics) RecordGrouping(criterion string, duration time.Duration) {
	m.groupingDuration.WithLabelValues(criterion).Observe(duration.Seconds())
}

// RecordHTTPRequest counts one served request and observes its duration.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, fmt.Sprintf("%d", status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// SetMunicipalityCount updates the stored indicator set gauge.
func (m *Metrics) SetMunicipalityCount(count int64) {
	m.municipalitiesGauge.Set(float64(count))
}
