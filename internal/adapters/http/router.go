package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"

	"github.com/calvales/co2scope/internal/pkg/metrics"
)

// legacySunset is when the pre-v1 endpoints stop being served.
var legacySunset = time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC)

// SetupRoutes registers all REST and GraphQL routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // Balance speed vs compression ratio
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Sunset headers on the pre-v1 surface
	app.Use(DeprecationMiddleware([]DeprecatedRoute{
		{Path: "/data", SunsetDate: legacySunset, Alternative: "/v1/soundings"},
		{Path: "/health", SunsetDate: legacySunset, Alternative: "/v1/health"},
	}))

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1 with a 30s per-request timeout; a full scan over a
	// large collection can be slow
	v1 := app.Group("/v1")
	v1.Get("/soundings", timeout.NewWithContext(SelectSoundingsHandler(deps), 30*time.Second))
	v1.Get("/soundings/export.geojson", timeout.NewWithContext(ExportGeoJSONHandler(deps), 30*time.Second))
	v1.Get("/catalog/granules", timeout.NewWithContext(ListGranulesHandler(deps), 30*time.Second))
	v1.Get("/catalog/granules/:name", timeout.NewWithContext(GetGranuleHandler(deps), 30*time.Second))
	v1.Get("/catalog/stats", timeout.NewWithContext(CatalogStatsHandler(deps), 30*time.Second))

	// Pre-v1 endpoints kept for existing map clients
	app.Get("/data", timeout.NewWithContext(LegacySoundingsHandler(deps), 30*time.Second))
	app.Get("/health", LegacyHealthHandler())

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)
}
