package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/septivank/activity-anomaly-worker/internal/anomaly"
)

// Metrics holds the detection counters exported by the worker
type Metrics struct {
	registry          *prometheus.Registry
	AnomaliesDetected *prometheus.CounterVec
	RecordsProcessed  prometheus.Counter
	ParseWarnings     prometheus.Counter
	DetectionDuration prometheus.Histogram
	BatchesFailed     prometheus.Counter
}

// New registers the detection metrics on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		AnomaliesDetected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activity_anomalies_detected_total",
				Help: "Total number of anomalies detected, by kind",
			},
			[]string{"kind"},
		),
		RecordsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "activity_records_processed_total",
			Help: "Total number of log records fed to the detectors",
		}),
		ParseWarnings: factory.NewCounter(prometheus.CounterOpts{
			Name: "activity_parse_warnings_total",
			Help: "Total number of log lines skipped by the parser",
		}),
		DetectionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "activity_detection_duration_seconds",
			Help:    "Time spent running all detectors over one batch",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		BatchesFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "activity_batches_failed_total",
			Help: "Total number of log batches that could not be processed",
		}),
	}

	for _, k := range anomaly.Kinds() {
		m.AnomaliesDetected.WithLabelValues(k.String())
	}
	reg.MustRegister(collectors.NewGoCollector())

	return m
}

// ObserveRun records the outcome of one detection pass
func (m *Metrics) ObserveRun(records, warnings int, anomalies []anomaly.Anomaly, took time.Duration) {
	m.RecordsProcessed.Add(float64(records))
	m.ParseWarnings.Add(float64(warnings))
	m.DetectionDuration.Observe(took.Seconds())
	for kind, n := range anomaly.CountByKind(anomalies) {
		m.AnomaliesDetected.WithLabelValues(kind.String()).Add(float64(n))
	}
}

// Registry exposes the underlying registry for tests and custom gatherers
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
