package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-eval-console/internal/dto"
	"github.com/noah-isme/gema-eval-console/internal/evaluation"
	"github.com/noah-isme/gema-eval-console/internal/service"
	"github.com/noah-isme/gema-eval-console/internal/utils"
)

// EvaluationHandler exposes the evaluation settings panel and preview actions.
type EvaluationHandler struct {
	config   service.EvaluationConfigService
	preview  service.EvaluationPreviewService
	validate *validator.Validate
	logger   zerolog.Logger
	now      func() time.Time
}

// NewEvaluationHandler constructs the handler.
func NewEvaluationHandler(config service.EvaluationConfigService, preview service.EvaluationPreviewService, validate *validator.Validate, logger zerolog.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		config:   config,
		preview:  preview,
		validate: validate,
		logger:   logger.With().Str("component", "evaluation_handler").Logger(),
		now:      time.Now,
	}
}

// Register attaches evaluation routes to the router group. previewGuards run before the
// preview action, typically a rate limiter.
func (h *EvaluationHandler) Register(router fiber.Router, previewGuards ...fiber.Handler) {
	router.Get("/config", h.getConfig)
	router.Post("/config/reload", h.reloadConfig)
	router.Put("/config/weights/:key", h.setWeight)
	router.Put("/config/alpha", h.setAlpha)
	router.Put("/config/bands/:band", h.setBand)
	router.Put("/config/period", h.setPeriod)
	router.Post("/config/save", h.saveConfig)

	router.Get("/ranges/preset/:preset", h.presetRange)
	router.Get("/ranges/week/:week", h.weekRange)
	router.Get("/ranges/week-preset/:preset", h.weekPresetRange)

	handlers := append(append([]fiber.Handler{}, previewGuards...), h.runPreview)
	router.Post("/preview", handlers...)
}

func (h *EvaluationHandler) getConfig(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "evaluation config", h.config.Current())
}

func (h *EvaluationHandler) reloadConfig(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "evaluation config reloaded", h.config.Load(c.UserContext(), true))
}

func (h *EvaluationHandler) setWeight(c *fiber.Ctx) error {
	raw := strings.ToLower(strings.TrimSpace(c.Params("key")))
	if err := h.validate.Var(raw, "required,oneof=accuracy time progress motivation"); err != nil {
		return utils.Fail(c, fiber.StatusNotFound, "unknown weight", map[string]string{"key": raw})
	}

	var payload dto.WeightUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return h.invalidBody(c, err)
	}
	if err := h.validate.Struct(payload); err != nil {
		return h.invalidBody(c, err)
	}

	key, _ := evaluation.ParseWeightKey(raw)
	resp, err := h.config.SetWeight(key, *payload.Value)
	if err != nil {
		if errors.Is(err, evaluation.ErrUnknownWeight) {
			return utils.Fail(c, fiber.StatusNotFound, "unknown weight", map[string]string{"key": raw})
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to set weight")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to update weight")
	}

	return utils.SendSuccess(c, "weight updated", resp)
}

func (h *EvaluationHandler) setAlpha(c *fiber.Ctx) error {
	var payload dto.WeightUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return h.invalidBody(c, err)
	}
	if err := h.validate.Struct(payload); err != nil {
		return h.invalidBody(c, err)
	}

	return utils.SendSuccess(c, "alpha updated", h.config.SetAlpha(*payload.Value))
}

func (h *EvaluationHandler) setBand(c *fiber.Ctx) error {
	raw := strings.ToLower(strings.TrimSpace(c.Params("band")))
	if err := h.validate.Var(raw, "required,oneof=low medium"); err != nil {
		return utils.Fail(c, fiber.StatusNotFound, "unknown band", map[string]string{"band": raw})
	}

	var payload dto.BandUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return h.invalidBody(c, err)
	}
	if err := h.validate.Struct(payload); err != nil {
		return h.invalidBody(c, err)
	}

	band, _ := evaluation.ParseBand(raw)
	resp, err := h.config.SetBand(band, *payload.Min, *payload.Max)
	if err != nil {
		if errors.Is(err, evaluation.ErrUnknownBand) {
			return utils.Fail(c, fiber.StatusNotFound, "unknown band", map[string]string{"band": raw})
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to set band")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to update band")
	}

	return utils.SendSuccess(c, "band updated", resp)
}

func (h *EvaluationHandler) setPeriod(c *fiber.Ctx) error {
	var payload dto.PeriodUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return h.invalidBody(c, err)
	}
	if err := h.validate.Struct(payload); err != nil {
		return h.invalidBody(c, err)
	}

	return utils.SendSuccess(c, "period updated", h.config.SetPeriodDays(*payload.Days))
}

func (h *EvaluationHandler) saveConfig(c *fiber.Ctx) error {
	resp, err := h.config.Save(c.UserContext())
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("evaluation config save failed")
		return utils.Fail(c, failureStatus(err), resp.Notice.Message, resp)
	}

	return utils.SendSuccess(c, resp.Notice.Message, resp)
}

func (h *EvaluationHandler) presetRange(c *fiber.Ctx) error {
	now, err := parseQueryDate(c, "now", h.now())
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid now date, expected YYYY-MM-DD")
	}

	preset := c.Params("preset")
	r, err := evaluation.ResolvePreset(preset, now)
	if err != nil {
		return utils.Fail(c, fiber.StatusNotFound, "unknown preset", map[string]string{"preset": preset})
	}

	resp := dto.NewRangeResponse(r)
	resp.Preset = strings.ToLower(preset)
	return utils.SendSuccess(c, "range resolved", resp)
}

func (h *EvaluationHandler) weekRange(c *fiber.Ctx) error {
	week := strings.TrimSpace(c.Params("week"))
	if _, _, ok := evaluation.ParseISOWeek(week); !ok {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid week, expected YYYY-Www", map[string]string{"week": week})
	}

	r, ok := evaluation.ResolveISOWeek(week)
	if !ok {
		return utils.Fail(c, fiber.StatusNotFound, "no such week in that year", map[string]string{"week": week})
	}

	resp := dto.NewRangeResponse(r)
	resp.Week = week
	return utils.SendSuccess(c, "range resolved", resp)
}

func (h *EvaluationHandler) weekPresetRange(c *fiber.Ctx) error {
	now, err := parseQueryDate(c, "now", h.now())
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid now date, expected YYYY-MM-DD")
	}

	preset := c.Params("preset")
	week, r, err := evaluation.WeekPreset(preset, now)
	if err != nil {
		return utils.Fail(c, fiber.StatusNotFound, "unknown week preset", map[string]string{"preset": preset})
	}

	resp := dto.NewRangeResponse(r)
	resp.Preset = strings.ToLower(preset)
	resp.Week = week
	return utils.SendSuccess(c, "range resolved", resp)
}

func (h *EvaluationHandler) runPreview(c *fiber.Ctx) error {
	var payload dto.PreviewInput
	if err := c.BodyParser(&payload); err != nil {
		return h.invalidBody(c, err)
	}
	if err := h.validate.Struct(payload); err != nil {
		return h.invalidBody(c, err)
	}

	resp, err := h.preview.Preview(c.UserContext(), payload)
	if err != nil {
		status := failureStatus(err)
		if status >= fiber.StatusInternalServerError {
			requestLogger(h.logger, c).Warn().Err(err).Msg("evaluation preview failed")
		}
		return utils.Fail(c, status, resp.Notice.Message, resp)
	}

	message := "preview ready"
	if resp.Notice != nil {
		message = resp.Notice.Message
	}
	return utils.SendSuccess(c, message, resp)
}

func (h *EvaluationHandler) invalidBody(c *fiber.Ctx, err error) error {
	if isValidationError(err) {
		return utils.Fail(c, fiber.StatusUnprocessableEntity, "validation failed", validationDetails(err))
	}
	return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
}
