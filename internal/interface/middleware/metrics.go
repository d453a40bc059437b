package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flashteams_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flashteams_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
	authAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flashteams_auth_attempts_total",
		Help: "Total auth attempts by method and outcome",
	}, []string{"method", "success"})
	rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flashteams_rate_limited_total",
		Help: "Requests rejected by the rate limiter, by route",
	}, []string{"route"})
)

// Metrics records request count and latency per route.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// MetricsHandler serves the default Prometheus registry.
func MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// RecordAuthAttempt counts a login attempt; method is "password", "google" or "signup".
func RecordAuthAttempt(method string, err error) {
	authAttempts.WithLabelValues(method, strconv.FormatBool(err == nil)).Inc()
}
