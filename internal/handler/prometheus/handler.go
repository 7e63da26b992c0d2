package prometheus

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var labels = []string{"method", "route", "status"}

// Handler instruments the API router and serves the registry it writes to.
type Handler struct {
	registry *prometheus.Registry
	inFlight prometheus.Gauge
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
	failures *prometheus.CounterVec
}

func New(registry *prometheus.Registry, namespace string) *Handler {
	f := promauto.With(registry)
	return &Handler{
		registry: registry,
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Requests currently being served.",
		}),
		// Document views and xlsx exports run for seconds, hence the long tail.
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Request latency by route.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, labels),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Requests by route and status.",
		}, labels),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Requests answered with a 4xx or 5xx status.",
		}, labels),
	}
}

// Middleware labels requests by route template so patient and examination
// ids never become label values. Scrapes and probes are not recorded.
func (h *Handler) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if skip(c.Request.URL.Path) {
			c.Next()
			return
		}

		h.inFlight.Inc()
		start := time.Now()
		c.Next()
		h.inFlight.Dec()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		code := c.Writer.Status()
		values := []string{c.Request.Method, route, strconv.Itoa(code)}

		h.duration.WithLabelValues(values...).Observe(time.Since(start).Seconds())
		h.requests.WithLabelValues(values...).Inc()
		if code >= 400 {
			h.failures.WithLabelValues(values...).Inc()
		}
	}
}

func (h *Handler) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{Registry: h.registry}))
}

func skip(path string) bool {
	return path == "/metrics" || strings.HasPrefix(path, "/api/v1/health/")
}
