package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPMetrics holds the request collectors.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	changes  *prometheus.CounterVec
	gatherer prometheus.Gatherer
}

// NewHTTPMetrics registers request collectors with reg. Pass a fresh
// prometheus.Registry in tests.
func NewHTTPMetrics(reg *prometheus.Registry) *HTTPMetrics {
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "codelist",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "codelist",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "codelist",
			Subsystem: "audit",
			Name:      "changes_total",
			Help:      "Audited codelist change requests by action and outcome.",
		}, []string{"action", "outcome"}),
		gatherer: reg,
	}
	reg.MustRegister(m.requests, m.duration, m.changes)
	return m
}

// Middleware records one observation per request, labelled by the matched
// route rather than the raw path.
func (m *HTTPMetrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			m.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// RecordChange counts an audited change request, so HTTPMetrics can be
// passed to Audit as a recorder.
func (m *HTTPMetrics) RecordChange(entry AuditEntry) error {
	outcome := "applied"
	if entry.StatusCode >= http.StatusBadRequest {
		outcome = "rejected"
	}
	m.changes.WithLabelValues(entry.Action, outcome).Inc()
	return nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *HTTPMetrics) Handler() echo.HandlerFunc {
	h := promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
	return func(c echo.Context) error {
		h.ServeHTTP(c.Response(), c.Request())
		return nil
	}
}
