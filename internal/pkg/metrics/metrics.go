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
		Namespace: "co2scope",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "co2scope",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "co2scope",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Selector metrics
	SelectionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "co2scope",
		Subsystem: "selector",
		Name:      "selection_duration_seconds",
		Help:      "Duration of one full viewport scan over the granule collection",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"mode"})

	SoundingsReturned = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "co2scope",
		Subsystem: "selector",
		Name:      "soundings_returned",
		Help:      "Records returned per viewport query",
		Buckets:   prometheus.ExponentialBuckets(1, 10, 7),
	}, []string{"mode"})

	GranulesScanned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "co2scope",
		Subsystem: "selector",
		Name:      "granules_scanned_total",
		Help:      "Total granules visited by viewport scans",
	})

	GranulesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "co2scope",
		Subsystem: "selector",
		Name:      "granules_skipped_total",
		Help:      "Total granules skipped because they failed to decode",
	})

	ViewportSpanKm = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "co2scope",
		Subsystem: "selector",
		Name:      "viewport_span_km",
		Help:      "Great-circle diagonal of requested viewports in km",
		Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000, 20000, 50000},
	})

	// Catalog metrics, set on every refresh
	CatalogGranules = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "co2scope",
		Subsystem: "catalog",
		Name:      "granules",
		Help:      "Granules currently in the collection",
	})

	CatalogSoundings = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "co2scope",
		Subsystem: "catalog",
		Name:      "soundings",
		Help:      "Soundings currently in the collection",
	})

	CatalogSizeBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "co2scope",
		Subsystem: "catalog",
		Name:      "size_bytes",
		Help:      "Total size of the granule collection in bytes",
	})

	CatalogFootprintGranules = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "co2scope",
		Subsystem: "catalog",
		Name:      "footprint_granules",
		Help:      "Granules carrying footprint vertex columns",
	})

	CatalogLastRefresh = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "co2scope",
		Subsystem: "catalog",
		Name:      "last_refresh_timestamp_seconds",
		Help:      "Unix time of the last completed catalog refresh",
	})

	CatalogRefreshErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "co2scope",
		Subsystem: "catalog",
		Name:      "refresh_errors_total",
		Help:      "Total failed catalog refreshes",
	})

	CatalogRefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "co2scope",
		Subsystem: "catalog",
		Name:      "refresh_duration_seconds",
		Help:      "Duration of catalog refreshes",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
	})
)

// ObserveSelection records the outcome of one viewport scan.
func ObserveSelection(mode string, duration time.Duration, records, scanned, skipped int) {
	SelectionDuration.WithLabelValues(mode).Observe(duration.Seconds())
	SoundingsReturned.WithLabelValues(mode).Observe(float64(records))
	GranulesScanned.Add(float64(scanned))
	GranulesSkipped.Add(float64(skipped))
}

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
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

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
