package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const ServiceName = "bot-cupons"

var (
	// HTTP request metrics
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code", "service"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "service"},
	)

	// Business metrics
	PublishCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publish_cycles_total",
			Help: "Total number of publish cycles by outcome",
		},
		[]string{"status"},
	)

	CouponMatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coupon_matches_total",
			Help: "Coupon lookups by result (matched or none)",
		},
		[]string{"result"},
	)

	UpstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_calls_total",
			Help: "Calls to the marketplace and messaging APIs",
		},
		[]string{"service", "status"},
	)

	ApplicationInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "application_info",
			Help: "Application information",
		},
		[]string{"service", "vendor"},
	)
)

// Init registra as informações da aplicação
func Init(vendor string) {
	ApplicationInfo.WithLabelValues(ServiceName, vendor).Set(1)
}

// Middleware coleta métricas de cada requisição HTTP
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HttpRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
			ServiceName,
		).Inc()
		HttpRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
			ServiceName,
		).Observe(time.Since(start).Seconds())
	}
}
