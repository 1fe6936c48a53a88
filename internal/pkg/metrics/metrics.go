package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trailposter",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "trailposter",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method", "path"})

	// Pipeline metrics
	LayerFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trailposter",
		Subsystem: "layers",
		Name:      "fetches_total",
		Help:      "Total external layer fetches issued",
	}, []string{"kind"})

	LayerFetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trailposter",
		Subsystem: "layers",
		Name:      "fetch_errors_total",
		Help:      "Total failed external layer fetches",
	}, []string{"kind"})

	LayerFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "trailposter",
		Subsystem: "layers",
		Name:      "fetch_duration_seconds",
		Help:      "Duration of external layer fetches",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"kind"})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trailposter",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total layer cache hits",
	}, []string{"kind"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trailposter",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total layer cache misses",
	}, []string{"kind"})

	FeaturesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trailposter",
		Subsystem: "detect",
		Name:      "features_total",
		Help:      "Total features detected along journeys",
	}, []string{"kind"})

	LabelsPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trailposter",
		Subsystem: "labels",
		Name:      "placed_total",
		Help:      "Total labels successfully placed",
	})

	LabelsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trailposter",
		Subsystem: "labels",
		Name:      "dropped_total",
		Help:      "Total labels dropped for lack of space",
	})

	RecomputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "trailposter",
		Subsystem: "pipeline",
		Name:      "recompute_duration_seconds",
		Help:      "Duration of full poster recomputations",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	RecomputesSuperseded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trailposter",
		Subsystem: "pipeline",
		Name:      "recomputes_superseded_total",
		Help:      "Total recomputations discarded because a newer request replaced them",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
