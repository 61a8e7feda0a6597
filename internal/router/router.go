package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-eval-console/internal/config"
	"github.com/noah-isme/gema-eval-console/internal/handler"
	"github.com/noah-isme/gema-eval-console/internal/middleware"
	"github.com/noah-isme/gema-eval-console/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	EvaluationHandler *handler.EvaluationHandler
	// PreviewLimiter guards the preview action; nil builds one from the config.
	PreviewLimiter fiber.Handler
	Logger         zerolog.Logger
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler(deps.Logger))

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	if deps.EvaluationHandler != nil {
		limiter := deps.PreviewLimiter
		if limiter == nil {
			limiter = middleware.RateLimit("evaluation_preview", cfg.PreviewRateLimit, cfg.PreviewRateWindow)
		}
		deps.EvaluationHandler.Register(api.Group("/evaluation"), limiter)
	}
}
