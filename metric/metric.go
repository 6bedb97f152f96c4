// Package metric exposes prometheus instrumentation of compiled
// flowgraphs and their blocks.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "esdr"

const (
	resultOK    = "ok"
	resultError = "error"
)

// Metrics holds the collectors. Nil Metrics is valid and measures
// nothing.
type Metrics struct {
	compiles *prometheus.CounterVec
	updates  *prometheus.CounterVec
	running  prometheus.Gauge
	messages *prometheus.CounterVec
	samples  *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// ResetFunc returns new Measure closure. This closure is needed to postpone metrics
// capture until block is actually running.
type ResetFunc func() MeasureFunc

// MeasureFunc captures metrics when buffer is processed.
type MeasureFunc func(bufferSize int)

// New creates metrics and registers them in reg.
func New(reg prometheus.Registerer) *Metrics {
	m := Metrics{
		compiles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compiles_total",
				Help:      "Number of flowgraph compilations by result.",
			},
			[]string{"result"},
		),
		updates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scalar_updates_total",
				Help:      "Number of live scalar updates by result.",
			},
			[]string{"result"},
		),
		running: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pipelines_running",
				Help:      "Number of running pipelines.",
			},
		),
		messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "block",
				Name:      "messages_total",
				Help:      "Number of buffers processed by block.",
			},
			[]string{"block"},
		),
		samples: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "block",
				Name:      "samples_total",
				Help:      "Number of samples processed by block.",
			},
			[]string{"block"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "block",
				Name:      "latency_seconds",
				Help:      "Time between two processed buffers.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"block"},
		),
	}
	reg.MustRegister(m.compiles, m.updates, m.running, m.messages, m.samples, m.latency)
	return &m
}

// Compiled counts compilation result.
func (m *Metrics) Compiled(err error) {
	if m == nil {
		return
	}
	m.compiles.WithLabelValues(result(err)).Inc()
}

// Updated counts live update result.
func (m *Metrics) Updated(err error) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(result(err)).Inc()
}

// Started marks a pipeline as running.
func (m *Metrics) Started() {
	if m == nil {
		return
	}
	m.running.Inc()
}

// Stopped marks a pipeline as stopped.
func (m *Metrics) Stopped() {
	if m == nil {
		return
	}
	m.running.Dec()
}

// Meter creates new meter closure to capture block counters.
func (m *Metrics) Meter(block string) ResetFunc {
	if m == nil {
		return func() MeasureFunc {
			return func(int) {}
		}
	}
	messages := m.messages.WithLabelValues(block)
	samples := m.samples.WithLabelValues(block)
	latency := m.latency.WithLabelValues(block)
	return func() MeasureFunc {
		calledAt := time.Now()
		return func(s int) {
			latency.Observe(time.Since(calledAt).Seconds())
			messages.Inc()
			samples.Add(float64(s))
			calledAt = time.Now()
		}
	}
}

func result(err error) string {
	if err != nil {
		return resultError
	}
	return resultOK
}
