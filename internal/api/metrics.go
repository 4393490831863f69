package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	seoRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seo_http_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	seoRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "seo_http_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	seoQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seo_queries_total",
		Help: "Total metrics queries by query type and outcome.",
	}, []string{"query", "outcome"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		seoRequestsTotal.WithLabelValues(method, path, status).Inc()
		seoRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordQuery records one metrics query by type and outcome.
func RecordQuery(query string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	seoQueriesTotal.WithLabelValues(query, outcome).Inc()
}
