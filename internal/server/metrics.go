package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	actions        *prometheus.CounterVec
	intake         *prometheus.CounterVec
	logins         *prometheus.CounterVec
	activeSessions prometheus.Gauge
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pallybot",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pallybot",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pallybot",
			Name:      "workspace_actions_total",
			Help:      "Workspace actions dispatched, by action and outcome.",
		}, []string{"action", "outcome"}),
		intake: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pallybot",
			Name:      "intake_requests_total",
			Help:      "Job description intake requests, by source and outcome.",
		}, []string{"source", "outcome"}),
		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pallybot",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pallybot",
			Name:      "workspace_sessions",
			Help:      "Workspace sessions currently open.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeRequest(route, method string, code int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func (m *Metrics) observeAction(action string, err error) {
	m.actions.WithLabelValues(action, outcome(err)).Inc()
}

func (m *Metrics) observeIntake(source string, err error) {
	m.intake.WithLabelValues(source, outcome(err)).Inc()
}

func (m *Metrics) observeLogin(err error) {
	m.logins.WithLabelValues(outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
