package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-eval-console/internal/config"
	"github.com/noah-isme/gema-eval-console/internal/handler"
	"github.com/noah-isme/gema-eval-console/internal/middleware"
	"github.com/noah-isme/gema-eval-console/internal/platform"
	"github.com/noah-isme/gema-eval-console/internal/service"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	cfg := config.Config{
		AppName:           "GEMA Evaluation Console",
		AppEnv:            "test",
		PlatformBaseURL:   "http://127.0.0.1:1",
		PreviewRateLimit:  1,
		PreviewRateWindow: time.Minute,
	}

	client, err := platform.New(platform.Config{BaseURL: cfg.PlatformBaseURL, Timeout: time.Second}, zerolog.Nop())
	require.NoError(t, err)

	configService := service.NewEvaluationConfigService(client, nil, 0, nil, "", zerolog.Nop())
	previewService := service.NewEvaluationPreviewService(client, zerolog.Nop())

	app := fiber.New()
	middleware.Register(app, middleware.Config{})
	Register(app, cfg, Dependencies{
		EvaluationHandler: handler.NewEvaluationHandler(configService, previewService, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop()),
	})
	return app
}

func TestRegisterExposesHealthAndMetrics(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "GEMA Evaluation Console", resp.Header.Get("X-Application"))
	require.NotEmpty(t, resp.Header.Get(middleware.HeaderCorrelationID))

	_, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/evaluation/config", nil))
	require.NoError(t, err)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "evaluation_console_requests_total")
}

func TestRegisterRateLimitsPreview(t *testing.T) {
	app := newTestApp(t)

	statuses := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/evaluation/preview", strings.NewReader(`{"user_ids": []}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		statuses = append(statuses, resp.StatusCode)
	}

	require.Equal(t, []int{fiber.StatusUnprocessableEntity, fiber.StatusTooManyRequests}, statuses)
}
