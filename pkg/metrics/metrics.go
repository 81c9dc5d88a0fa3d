package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "admin_dashboard"

// Metrics holds the service's prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	ActiveRequests  prometheus.Gauge
	RequestDuration *prometheus.HistogramVec
	GateOutcomes    *prometheus.CounterVec
	RateLimited     *prometheus.CounterVec
	UpstreamErrors  *prometheus.CounterVec
	AuditDropped    prometheus.Counter
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_active_requests",
			Help:      "Number of requests currently being served.",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Request latency by method, route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		GateOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Edge gate decisions by outcome.",
		}, []string{"outcome"}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Refused authentication attempts by scope.",
		}, []string{"scope"}),
		UpstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "Failed calls to the remote API by operation.",
		}, []string{"operation"}),
		AuditDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_events_dropped_total",
			Help:      "Audit events that could not be written.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ActiveRequests,
		m.RequestDuration,
		m.GateOutcomes,
		m.RateLimited,
		m.UpstreamErrors,
		m.AuditDropped,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveGate(outcome string) {
	m.GateOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRateLimited(scope string) {
	m.RateLimited.WithLabelValues(scope).Inc()
}

func (m *Metrics) ObserveUpstreamError(operation string) {
	m.UpstreamErrors.WithLabelValues(operation).Inc()
}

func (m *Metrics) ObserveAuditDropped() {
	m.AuditDropped.Inc()
}

// Middleware tracks active requests and latency per route template.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.ActiveRequests.Inc()
			start := time.Now()

			err := next(c)

			// let the error handler write the response so the status is final
			if err != nil {
				c.Error(err)
			}
			m.ActiveRequests.Dec()
			status := c.Response().Status
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.RequestDuration.
				WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// RegisterRoute exposes the registry at /metrics.
func (m *Metrics) RegisterRoute(e *echo.Echo) {
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})))
}
