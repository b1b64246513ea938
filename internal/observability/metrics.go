// Package observability provides Prometheus metrics for the selector.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/optimal-selector/internal/selection"
)

// Metrics holds all Prometheus metrics for the application.
// It implements selection.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	// Selection metrics
	CalculateTotal    *prometheus.CounterVec
	CalculateDuration prometheus.Histogram
	EvaluationsTotal  *prometheus.CounterVec
	WindowsPlanned    prometheus.Counter
	WindowsOmitted    prometheus.Counter

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// Compile-time interface check.
var _ selection.Recorder = (*Metrics)(nil)

// NewMetrics creates a new Metrics instance on its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "optimal_selector"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		CalculateTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "selection",
			Name:      "calculate_total",
			Help:      "Total number of calculate calls by outcome",
		}, []string{"outcome"}),
		CalculateDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "selection",
			Name:      "calculate_duration_seconds",
			Help:      "Duration of calculate calls",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),
		EvaluationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "selection",
			Name:      "evaluations_total",
			Help:      "Total number of candidate evaluations by outcome",
		}, []string{"outcome"}),
		WindowsPlanned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "selection",
			Name:      "windows_planned_total",
			Help:      "Total number of planned walk-forward windows",
		}),
		WindowsOmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "selection",
			Name:      "windows_omitted_total",
			Help:      "Total number of windows dropped because every candidate failed",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status",
		}, []string{"route", "method", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// ObserveCalculate records one calculate call
func (m *Metrics) ObserveCalculate(outcome string, elapsed time.Duration) {
	m.CalculateTotal.WithLabelValues(outcome).Inc()
	m.CalculateDuration.Observe(elapsed.Seconds())
}

// ObserveEvaluation records one candidate evaluation
func (m *Metrics) ObserveEvaluation(outcome string) {
	m.EvaluationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveWindows records planned and kept window counts of one calculate
func (m *Metrics) ObserveWindows(planned, kept int) {
	m.WindowsPlanned.Add(float64(planned))
	if planned > kept {
		m.WindowsOmitted.Add(float64(planned - kept))
	}
}

// ObserveHTTP records one served request
func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
