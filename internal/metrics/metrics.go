// Package metrics exposes Prometheus metrics for ingestion runs.
//
// Metrics are registered on a private registry so tests and multiple runs in one process do
// not collide on the global default registry. All methods are safe on a nil *Metrics, which
// lets callers leave metrics disabled.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "exam_events"

// Metrics holds all ingestion metrics.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal        *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	LastRunTimestamp prometheus.Gauge

	AdapterDuration *prometheus.HistogramVec
	AdapterFailures *prometheus.CounterVec

	BlocksTotal   *prometheus.CounterVec
	RecordsPurged prometheus.Counter
}

// New creates and registers all metrics on reg. A nil reg gets a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Ingestion runs by final status",
		}, []string{"status"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a full ingestion run",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68min
		}),
		LastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
		AdapterDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "adapter",
			Name:      "duration_seconds",
			Help:      "Time spent fetching and processing one source",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"source"}),
		AdapterFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "adapter",
			Name:      "failures_total",
			Help:      "Sources that failed as a whole (fetch error, timeout, panic)",
		}, []string{"source"}),
		BlocksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_total",
			Help:      "Candidate blocks processed, by source and outcome",
		}, []string{"source", "outcome"}),
		RecordsPurged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_purged_total",
			Help:      "Records removed by the retention policy",
		}),
	}
}

// Registry returns the registry the metrics live on
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveBlock counts one processed block.
func (m *Metrics) ObserveBlock(source, outcome string) {
	if m == nil {
		return
	}
	m.BlocksTotal.WithLabelValues(source, outcome).Inc()
}

// ObserveAdapter records a finished source.
func (m *Metrics) ObserveAdapter(source string, d time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.AdapterDuration.WithLabelValues(source).Observe(d.Seconds())
	if failed {
		m.AdapterFailures.WithLabelValues(source).Inc()
	}
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(status string, d time.Duration, finished time.Time) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(d.Seconds())
	m.LastRunTimestamp.Set(float64(finished.Unix()))
}

// AddPurged counts records deleted by retention
func (m *Metrics) AddPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.RecordsPurged.Add(float64(n))
}
