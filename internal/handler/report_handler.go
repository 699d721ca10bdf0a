package handler

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/civiclens/civiclens-api/internal/dto"
	"github.com/civiclens/civiclens-api/internal/repository"
	"github.com/civiclens/civiclens-api/internal/service"
	"github.com/civiclens/civiclens-api/internal/utils"
)

// ReportHandler manages citizen report intake and retrieval endpoints.
type ReportHandler struct {
	service service.ReportService
	logger  zerolog.Logger
}

// NewReportHandler builds a report handler instance.
func NewReportHandler(service service.ReportService, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		logger:  logger.With().Str("component", "report_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ReportHandler) Register(router fiber.Router) {
	router.Post("", h.submit)
	router.Get("", h.list)
	router.Get("/:id", h.get)
}

func (h *ReportHandler) submit(c *fiber.Ctx) error {
	lat, err := parseFormFloat(c, "lat")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	lng, err := parseFormFloat(c, "lng")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	payload := dto.ReportSubmitRequest{
		Lat:     lat,
		Lng:     lng,
		Notes:   c.FormValue("notes"),
		UserRef: c.FormValue("user_ref"),
	}

	file, err := c.FormFile("evidence")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "evidence image is required")
	}

	opened, err := file.Open()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "could not read evidence image")
	}
	defer func() {
		_ = opened.Close()
	}()

	evidence, err := io.ReadAll(opened)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "could not read evidence image")
	}

	report, err := h.service.Submit(c.Context(), payload, file.Filename, evidence)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "report submitted", report)
}

func (h *ReportHandler) list(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	offset, err := parseQueryInt(c, "offset")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid offset")
	}

	filter := repository.ReportFilter{
		Status:  c.Query("status"),
		UserRef: c.Query("user_ref"),
		Limit:   limit,
		Offset:  offset,
	}

	reports, total, err := h.service.List(c.Context(), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "reports retrieved", fiber.Map{
		"reports": reports,
		"total":   total,
	})
}

func (h *ReportHandler) get(c *fiber.Ctx) error {
	report, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "report retrieved", report)
}

func (h *ReportHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrReportNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "report not found")
	case errors.Is(err, service.ErrInvalidSubmission):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrEvidenceTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrEvidenceNotImage):
		return utils.SendError(c, fiber.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, service.ErrEvidenceUploadFailed):
		h.logger.Error().Err(err).Msg("evidence upload failed")
		return utils.SendError(c, fiber.StatusBadGateway, "evidence upload failed")
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
