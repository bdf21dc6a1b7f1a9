package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bertybuttface/sponsorblock-mirror/internal/handler"
	"github.com/bertybuttface/sponsorblock-mirror/internal/metrics"
	"github.com/bertybuttface/sponsorblock-mirror/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Segment *handler.SegmentHandler
	Health  *handler.HealthHandler
	Status  *handler.StatusHandler
}

// Options carries the router's cross-cutting settings.
type Options struct {
	CORSOrigins string
	// RateLimit is the per-IP budget per minute on segment lookups. Zero
	// disables limiting.
	RateLimit int
	Metrics   *metrics.Collector
	Gatherer  prometheus.Gatherer
}

// Setup configures the middleware stack and all routes on the given Fiber app.
func Setup(app *fiber.App, h *Handlers, opts Options) {
	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(middleware.NewRequestID())
	app.Use(middleware.NewRequestLogger())
	app.Use(middleware.NewCORS(opts.CORSOrigins))
	app.Use(handler.MetricsMiddleware(opts.Metrics))

	app.Get("/health", h.Health.Check)
	app.Get("/health/live", h.Health.Live)
	if opts.Gatherer != nil {
		app.Get("/metrics", handler.MetricsHandler(opts.Gatherer))
	}

	api := app.Group("/api")

	if opts.RateLimit > 0 {
		api.Use("/skipSegments", middleware.NewSegmentRateLimiter(opts.RateLimit).Handler())
	}
	api.Get("/skipSegments/:hash", h.Segment.GetByHashPrefix)
	api.Get("/skipSegments", h.Segment.GetByVideoID)

	api.Get("/status", h.Status.GetStatus)
	api.Get("/isUserVIP", handler.IsUserVIP)
	api.Get("/userInfo", handler.UserInfo)
}
