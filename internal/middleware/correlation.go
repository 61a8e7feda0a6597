package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/noah-isme/gema-eval-console/internal/platform"
)

const (
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderCSRFToken     = "X-CSRFToken"

	localCorrelationID = "correlation_id"
)

// RequestContext assigns a correlation id to every request and carries the caller's
// CSRF token and session cookie on the user context so platform calls act on their behalf.
func RequestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(HeaderCorrelationID))
		if id == "" {
			id = strings.TrimSpace(c.Get(fiber.HeaderXRequestID))
		}
		if id == "" {
			id = uuid.NewString()
		}
		id = strings.Clone(id)

		c.Locals(localCorrelationID, id)
		c.Set(HeaderCorrelationID, id)

		meta := platform.RequestMeta{
			CorrelationID: id,
			CSRFToken:     strings.Clone(strings.TrimSpace(c.Get(HeaderCSRFToken))),
			Cookie:        strings.Clone(c.Get(fiber.HeaderCookie)),
		}
		c.SetUserContext(platform.WithRequestMeta(c.UserContext(), meta))

		return c.Next()
	}
}

// GetCorrelationID returns the correlation identifier bound to the active request.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals(localCorrelationID).(string); ok {
		return id
	}
	return ""
}
