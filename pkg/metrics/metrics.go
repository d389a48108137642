// Package metrics exposes controller metrics in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "forklift_controller"

// Metric names, exported for tests and dashboards.
const (
	CommandsTotalMetric    = namespace + "_commands_total"
	CommandLatencyMetric   = namespace + "_command_duration_seconds"
	ControlValueMetric     = namespace + "_control_value"
	EmissionsTotalMetric   = namespace + "_emissions_total"
	ActiveSessionsMetric   = namespace + "_active_sessions"
	ValidationsTotalMetric = namespace + "_endpoint_validations_total"
)

// Command outcomes used as the "result" label.
const (
	ResultSent    = "sent"
	ResultFailed  = "failed"
	ResultDropped = "dropped"
)

// Metrics holds the controller collectors on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	commands     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	controlValue *prometheus.GaugeVec
	emissions    *prometheus.CounterVec
	sessions     prometheus.Gauge
	validations  *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Device commands by channel and result (sent, failed, dropped).",
			},
			[]string{"channel", "result"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "command_duration_seconds",
				Help:      "Round trip of device commands that reached the network.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
			},
			[]string{"channel"},
		),
		controlValue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "control_value",
				Help:      "Last value delivered on each channel.",
			},
			[]string{"channel"},
		),
		emissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "emissions_total",
				Help:      "Values emitted by session controls.",
			},
			[]string{"channel"},
		),
		sessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Connected dashboard sessions.",
			},
		),
		validations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "endpoint_validations_total",
				Help:      "Endpoint validations by outcome.",
			},
			[]string{"valid"},
		),
	}

	m.registry.MustRegister(
		m.commands,
		m.latency,
		m.controlValue,
		m.emissions,
		m.sessions,
		m.validations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// CommandSent records a delivered command.
func (m *Metrics) CommandSent(channel string, value float64, elapsed time.Duration) {
	m.commands.WithLabelValues(channel, ResultSent).Inc()
	m.latency.WithLabelValues(channel).Observe(elapsed.Seconds())
	m.controlValue.WithLabelValues(channel).Set(value)
}

// CommandFailed records a command the device did not accept.
func (m *Metrics) CommandFailed(channel string, elapsed time.Duration) {
	m.commands.WithLabelValues(channel, ResultFailed).Inc()
	m.latency.WithLabelValues(channel).Observe(elapsed.Seconds())
}

// CommandDropped records a command discarded before delivery.
func (m *Metrics) CommandDropped(channel string) {
	m.commands.WithLabelValues(channel, ResultDropped).Inc()
}

// RecordEmission counts a value emitted by a control.
func (m *Metrics) RecordEmission(channel string) {
	m.emissions.WithLabelValues(channel).Inc()
}

// SessionOpened increments the active session gauge.
func (m *Metrics) SessionOpened() {
	m.sessions.Inc()
}

// SessionClosed decrements the active session gauge.
func (m *Metrics) SessionClosed() {
	m.sessions.Dec()
}

// RecordValidation counts an endpoint validation.
func (m *Metrics) RecordValidation(valid bool) {
	label := "false"
	if valid {
		label = "true"
	}
	m.validations.WithLabelValues(label).Inc()
}
