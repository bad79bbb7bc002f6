package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-eval-api/internal/dto"
	"github.com/noah-isme/gema-eval-api/internal/scoring"
	"github.com/noah-isme/gema-eval-api/internal/service"
	"github.com/noah-isme/gema-eval-api/internal/utils"
)

// ScoringHandler exposes the scoring engine over HTTP.
type ScoringHandler struct {
	service   service.ScoringService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewScoringHandler constructs the handler.
func NewScoringHandler(service service.ScoringService, validate *validator.Validate, logger zerolog.Logger) *ScoringHandler {
	return &ScoringHandler{
		service:   service,
		validator: validate,
		logger:    logger.With().Str("component", "scoring_handler").Logger(),
	}
}

// RegisterWrite attaches the endpoints that trigger scoring.
func (h *ScoringHandler) RegisterWrite(router fiber.Router, batchGuards ...fiber.Handler) {
	router.Post("/batch", append(batchGuards, h.batch)...)
	router.Post("/:id", h.score)
}

// RegisterRead attaches the endpoints that read stored results.
func (h *ScoringHandler) RegisterRead(router fiber.Router) {
	router.Get("/:id/result", h.result)
	router.Get("/:id/history", h.history)
	router.Get("/:id/activities", h.activities)
}

func (h *ScoringHandler) score(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.ScoreRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.ScoreSubmission(c.UserContext(), id, service.ScoreOptions{
		Target:     payload.Target,
		BonusItems: bonusItems(payload.BonusItems),
		Actor:      activityActorFromContext(c),
	})
	if err != nil {
		return h.fail(c, err, id)
	}

	return utils.SendSuccess(c, "submission scored", result)
}

func (h *ScoringHandler) batch(c *fiber.Ctx) error {
	var payload dto.BatchScoreRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.ScoreBatch(c.UserContext(), payload.IDs, service.ScoreOptions{
		Target:     payload.Target,
		BonusItems: bonusItems(payload.BonusItems),
		Actor:      activityActorFromContext(c),
	})
	if err != nil {
		return h.fail(c, err, 0)
	}

	return utils.SendSuccess(c, "batch scored", result)
}

func (h *ScoringHandler) result(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	result, err := h.service.GetResult(c.UserContext(), id, c.Query("target"))
	if err != nil {
		return h.fail(c, err, id)
	}
	return utils.SendSuccess(c, "scoring result retrieved", result)
}

func (h *ScoringHandler) history(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	results, err := h.service.History(c.UserContext(), id, c.Query("target"))
	if err != nil {
		return h.fail(c, err, id)
	}
	return utils.OK(c, results, "scoring history retrieved", fiber.Map{"count": len(results)})
}

func (h *ScoringHandler) activities(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	list, err := h.service.Activities(c.UserContext(), id, c.Query("target"))
	if err != nil {
		return h.fail(c, err, id)
	}
	return utils.OK(c, list.Items, "scoring activity retrieved", list.Pagination)
}

func (h *ScoringHandler) fail(c *fiber.Ctx, err error, id uint) error {
	kind := service.ErrorKind(err)
	switch {
	case errors.Is(err, service.ErrInvalidTarget):
		return utils.FailWithKind(c, fiber.StatusBadRequest, err.Error(), kind)
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.FailWithKind(c, fiber.StatusNotFound, "submission not found", kind)
	case errors.Is(err, service.ErrResultNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "scoring result not found")
	}

	status := fiber.StatusInternalServerError
	switch kind {
	case service.KindInput, service.KindParsing:
		status = fiber.StatusUnprocessableEntity
	case service.KindAuthentication, service.KindContract:
		status = fiber.StatusBadGateway
	case service.KindTransport:
		status = fiber.StatusGatewayTimeout
	}

	logger := requestLogger(h.logger, c)
	if status == fiber.StatusInternalServerError {
		logger.Error().Err(err).Uint("id", id).Str("error_kind", kind).Msg("scoring request failed")
		return utils.FailWithKind(c, status, "scoring failed", kind)
	}
	logger.Warn().Err(err).Uint("id", id).Str("error_kind", kind).Msg("scoring request rejected")
	return utils.FailWithKind(c, status, err.Error(), kind)
}

func bonusItems(items []dto.BonusItemRequest) []scoring.BonusItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]scoring.BonusItem, 0, len(items))
	for _, item := range items {
		out = append(out, scoring.BonusItem{Name: item.Name, Score: item.Score})
	}
	return out
}
