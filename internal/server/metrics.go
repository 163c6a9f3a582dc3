package server

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fathomworks/verdictd/internal/assembler"
)

// Collectors register on the default registry, which promhttp.Handler()
// serves at /metrics.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verdictd_http_requests_total",
		Help: "Total HTTP requests by method, path, and status code.",
	}, []string{"method", "path", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "verdictd_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds by method and path.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method", "path"})

	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verdictd_decisions_total",
		Help: "Synthesized decisions by domain, retrieval method, and status.",
	}, []string{"domain", "method", "status"})
)

// metricsMiddleware records per-request counters and latency. Routed paths
// keep metric cardinality bounded; unmatched requests collapse to the 404
// handler's path.
func metricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			path := c.Path()
			if path == "" {
				path = "/"
			}
			method := c.Request().Method
			requestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Response().Status)).Inc()
			requestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// observeAnalysis records decision-level metrics for a completed analysis.
func observeAnalysis(resp *assembler.Response) {
	if resp == nil || resp.Decision == nil {
		return
	}
	decisionsTotal.WithLabelValues(
		resp.Query.Domain,
		resp.Retrieval.Method,
		string(resp.Decision.Status),
	).Inc()
}
