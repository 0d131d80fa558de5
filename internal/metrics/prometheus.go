package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestsTotal counts HTTP requests by service, path and status code.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luxcore_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "path", "status"},
	)

	// RequestDuration tracks HTTP request latency.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "luxcore_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "path"},
	)

	// CheckoutsTotal counts checkout commits by outcome.
	CheckoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luxcore_checkouts_total",
			Help: "Total number of checkout attempts by outcome",
		},
		[]string{"outcome"},
	)

	// StockCompensations counts reservations rolled back after a failed commit.
	StockCompensations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "luxcore_stock_compensations_total",
			Help: "Total number of stock reservations released by compensation",
		},
	)

	// CircuitBreakerState exposes notifier breaker state (0=closed, 1=open, 2=half-open).
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "luxcore_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"name"},
	)
)

func init() {
	prometheus.MustRegister(RequestsTotal, RequestDuration, CheckoutsTotal, StockCompensations, CircuitBreakerState)
}

// PrometheusMiddleware records request counts and latencies for gin routes.
func PrometheusMiddleware(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		RequestsTotal.WithLabelValues(service, path, strconv.Itoa(c.Writer.Status())).Inc()
		RequestDuration.WithLabelValues(service, path).Observe(time.Since(start).Seconds())
	}
}
