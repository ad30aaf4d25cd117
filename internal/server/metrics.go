package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics implements gateway.Recorder on a dedicated Prometheus registry.
type Metrics struct {
	registry *prometheus.Registry

	executions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	rejections *prometheus.CounterVec
	inFlight   prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qmd_bridge",
			Name:      "executions_total",
			Help:      "Completed tool executions by command and outcome.",
		}, []string{"command", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "qmd_bridge",
			Name:      "execution_duration_seconds",
			Help:      "Wall-clock duration of tool executions.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"command"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qmd_bridge",
			Name:      "rejections_total",
			Help:      "Requests rejected before the tool was invoked.",
		}, []string{"reason"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "qmd_bridge",
			Name:      "executions_in_flight",
			Help:      "Tool executions currently running.",
		}),
	}
	reg.MustRegister(m.executions, m.duration, m.rejections, m.inFlight)
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

func (m *Metrics) ExecutionFinished(command string, outcome string, elapsed time.Duration) {
	m.executions.WithLabelValues(command, outcome).Inc()
	m.duration.WithLabelValues(command).Observe(elapsed.Seconds())
}

func (m *Metrics) ExecutionRejected(reason string) {
	m.rejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) InFlightChanged(delta int) {
	m.inFlight.Add(float64(delta))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
