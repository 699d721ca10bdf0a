package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/civiclens/civiclens-api/internal/service"
	"github.com/civiclens/civiclens-api/internal/utils"
)

// AuditHandler exposes audit runs and verdict retrieval for citizen reports.
type AuditHandler struct {
	service service.AuditService
	logger  zerolog.Logger
}

// NewAuditHandler builds an audit handler instance.
func NewAuditHandler(service service.AuditService, logger zerolog.Logger) *AuditHandler {
	return &AuditHandler{
		service: service,
		logger:  logger.With().Str("component", "audit_handler").Logger(),
	}
}

// Register attaches the audit routes to the reports router group.
func (h *AuditHandler) Register(router fiber.Router) {
	router.Post("/:id/audit", h.run)
	router.Get("/:id/verdict", h.verdict)
	router.Post("/:id/fallback", h.fallback)
}

func (h *AuditHandler) run(c *fiber.Ctx) error {
	verdict, err := h.service.Run(c.Context(), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "audit completed", verdict)
}

func (h *AuditHandler) verdict(c *fiber.Ctx) error {
	verdict, err := h.service.Verdict(c.Context(), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "verdict retrieved", verdict)
}

func (h *AuditHandler) fallback(c *fiber.Ctx) error {
	verdict, err := h.service.RecordFallback(c.Context(), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "fallback verdict recorded", verdict)
}

func (h *AuditHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrReportNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "report not found")
	case errors.Is(err, service.ErrVerdictNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "verdict not found")
	case errors.Is(err, service.ErrGenuineVerdictExists):
		return utils.SendError(c, fiber.StatusConflict, "report already carries a genuine verdict")
	case errors.Is(err, service.ErrNoProjectsConfigured):
		return utils.SendError(c, fiber.StatusConflict, "no project records are configured for matching")
	case errors.Is(err, service.ErrEvidenceAnalysisFailed):
		h.logger.Warn().Err(err).Msg("evidence analysis failed")
		return utils.SendError(c, fiber.StatusBadGateway, "evidence analysis failed")
	case errors.Is(err, service.ErrVerdictGenerationFailed):
		h.logger.Warn().Err(err).Msg("verdict generation failed")
		return utils.SendError(c, fiber.StatusBadGateway, "verdict generation failed")
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
