package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"

	"github.com/mdenis/trailposter/internal/pkg/metrics"
)

// SetupRoutes registers all REST routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Get("/papers", ListPapersHandler(deps))
	v1.Post("/tracks", timeout.NewWithContext(LoadTracksHandler(deps), 30*time.Second))
	v1.Post("/tracks/gpx", timeout.NewWithContext(UploadGPXHandler(deps), 30*time.Second))

	// Compute talks to Overpass and the elevation API; give it a generous
	// timeout. Cache hits return in milliseconds.
	v1.Post("/posters/compute", timeout.NewWithContext(ComputeHandler(deps), 120*time.Second))
	v1.Get("/posters/last", LastBundleHandler(deps))
	v1.Get("/posters/last/geojson", GeoJSONHandler(deps))
}
