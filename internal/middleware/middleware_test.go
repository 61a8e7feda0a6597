package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-eval-console/internal/platform"
)

type metaProbe struct {
	meta platform.RequestMeta
}

func TestRequestContextKeepsIncomingCorrelationAndCredentials(t *testing.T) {
	probe := &metaProbe{}
	app := fiber.New()
	app.Use(RequestContext())
	app.Get("/", func(c *fiber.Ctx) error {
		probe.meta = platform.MetaFromContext(c.UserContext())
		return c.SendString(GetCorrelationID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderCorrelationID, "abc-123")
	req.Header.Set(HeaderCSRFToken, " token ")
	req.Header.Set("Cookie", "sessionid=xyz")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, "abc-123", resp.Header.Get(HeaderCorrelationID))
	require.Equal(t, platform.RequestMeta{CorrelationID: "abc-123", CSRFToken: "token", Cookie: "sessionid=xyz"}, probe.meta)
}

func TestRequestContextGeneratesCorrelationID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestContext())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Len(t, resp.Header.Get(HeaderCorrelationID), 36)
}

func TestRequestContextFallsBackToRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestContext())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-9")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, "req-9", resp.Header.Get(HeaderCorrelationID))
}

func TestRateLimitRejectsAfterMax(t *testing.T) {
	app := fiber.New()
	app.Post("/preview", RateLimit("preview", 2, time.Minute), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/preview", nil)
		req.Header.Set(HeaderCSRFToken, "session-a")
		resp, err := app.Test(req)
		require.NoError(t, err)
		statuses = append(statuses, resp.StatusCode)
	}
	require.Equal(t, []int{fiber.StatusOK, fiber.StatusOK, fiber.StatusTooManyRequests}, statuses)

	other := httptest.NewRequest(http.MethodPost, "/preview", nil)
	other.Header.Set(HeaderCSRFToken, "session-b")
	resp, err := app.Test(other)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestLatencyBucket(t *testing.T) {
	require.Equal(t, "<=50ms", latencyBucket(10*time.Millisecond))
	require.Equal(t, "<=1s", latencyBucket(600*time.Millisecond))
	require.Equal(t, ">5s", latencyBucket(6*time.Second))
}

func TestObservabilityIgnoresOtherPrefixes(t *testing.T) {
	app := fiber.New()
	app.Use(Observability(zerolog.Nop(), evaluationPrefix))
	app.Get("/api/v1/health", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/api/v1/evaluation/config", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for _, path := range []string{"/api/v1/health", "/api/v1/evaluation/config"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
}
