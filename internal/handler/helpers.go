package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-eval-console/internal/evaluation"
	"github.com/noah-isme/gema-eval-console/internal/middleware"
	"github.com/noah-isme/gema-eval-console/internal/platform"
)

// parseQueryDate reads an optional YYYY-MM-DD query value. Absent values yield fallback.
func parseQueryDate(c *fiber.Ctx, key string, fallback time.Time) (time.Time, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback, nil
	}
	date, err := evaluation.ParseDate(value)
	if err != nil {
		return time.Time{}, err
	}
	return date.Time, nil
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func validationDetails(err error) map[string]string {
	details := map[string]string{}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fe := range validationErrors {
			details[strings.ToLower(fe.Field())] = fe.Tag()
		}
	}
	return details
}

// failureStatus maps an action error to the console's HTTP status.
func failureStatus(err error) int {
	var (
		validationErrs evaluation.ValidationErrors
		serverErr      *platform.ServerError
		netErr         *platform.NetworkError
	)
	switch {
	case errors.As(err, &validationErrs):
		return fiber.StatusUnprocessableEntity
	case errors.As(err, &serverErr):
		switch serverErr.Status {
		case fiber.StatusUnauthorized, fiber.StatusForbidden, fiber.StatusBadRequest:
			return serverErr.Status
		}
		return fiber.StatusBadGateway
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return fiber.StatusGatewayTimeout
		}
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}
