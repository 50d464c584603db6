// Package metrics exposes Prometheus collectors for prediction traffic.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "glucorisk"

type Metrics struct {
	registry        *prometheus.Registry
	predictions     *prometheus.CounterVec
	inferenceErrors prometheus.Counter
	latency         prometheus.Histogram
	schemaColumns   prometheus.Gauge
}

// New registers collectors on a private registry, so several instances can
// coexist in tests.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Predictions served, by risk tier.",
		}, []string{"tier"}),
		inferenceErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_errors_total",
			Help:      "Score calls that failed.",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "Time spent encoding and scoring one record.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 12),
		}),
		schemaColumns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "schema_columns",
			Help:      "Width of the loaded feature schema.",
		}),
	}
	m.registry.MustRegister(
		m.predictions,
		m.inferenceErrors,
		m.latency,
		m.schemaColumns,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObservePrediction(tier string, d time.Duration) {
	m.predictions.WithLabelValues(tier).Inc()
	m.latency.Observe(d.Seconds())
}

func (m *Metrics) ObserveInferenceError() {
	m.inferenceErrors.Inc()
}

func (m *Metrics) SetSchemaColumns(n int) {
	m.schemaColumns.Set(float64(n))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
