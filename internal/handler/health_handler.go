package handler

import (
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-eval-console/internal/config"
	"github.com/noah-isme/gema-eval-console/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	Service      string    `json:"service"`
	Environment  string    `json:"environment"`
	PlatformHost string    `json:"platform_host"`
}

// HealthCheck reports liveness along with the platform host the console talks to.
func HealthCheck(cfg config.Config) fiber.Handler {
	host := cfg.PlatformBaseURL
	if parsed, err := url.Parse(cfg.PlatformBaseURL); err == nil && parsed.Host != "" {
		host = parsed.Host
	}

	return func(c *fiber.Ctx) error {
		return utils.SendSuccess(c, "service healthy", HealthResponse{
			Status:       "ok",
			Timestamp:    time.Now().UTC(),
			Service:      cfg.AppName,
			Environment:  cfg.AppEnv,
			PlatformHost: host,
		})
	}
}
