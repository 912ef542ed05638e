package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ordersSent  *prometheus.CounterVec
	signals     *prometheus.CounterVec
	lastSignal  *prometheus.GaugeVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New registers the recorder's collectors on the default registry.
func New() *Recorder {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers on reg, which lets tests use a private registry.
func NewWith(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		ordersSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stratrun_orders_sent_total",
				Help: "Target-percent orders handed to the order backend",
			},
			[]string{"backend", "strategy"},
		),
		signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stratrun_signals_total",
				Help: "Signals generated, by direction",
			},
			[]string{"strategy", "direction"},
		),
		lastSignal: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stratrun_last_signal",
				Help: "Most recent signal value per strategy and symbol",
			},
			[]string{"strategy", "symbol"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stratrun_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stratrun_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordOrderSent records an order handed to a backend.
func (r *Recorder) RecordOrderSent(backend, strategy string) {
	r.ordersSent.WithLabelValues(backend, strategy).Inc()
}

// RecordSignal counts the signal by direction and keeps the latest value.
func (r *Recorder) RecordSignal(strategy, symbol string, value float64) {
	dir := "flat"
	switch {
	case value > 0:
		dir = "long"
	case value < 0:
		dir = "short"
	}
	r.signals.WithLabelValues(strategy, dir).Inc()
	r.lastSignal.WithLabelValues(strategy, symbol).Set(value)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
