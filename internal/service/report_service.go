package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/civiclens/civiclens-api/internal/dto"
	"github.com/civiclens/civiclens-api/internal/models"
	"github.com/civiclens/civiclens-api/internal/observability"
	"github.com/civiclens/civiclens-api/internal/repository"
)

var (
	// ErrInvalidSubmission signals that the submitted fields failed validation.
	ErrInvalidSubmission = errors.New("invalid report submission")
	// ErrEvidenceTooLarge signals the evidence image exceeds the configured cap.
	ErrEvidenceTooLarge = errors.New("evidence image too large")
	// ErrEvidenceNotImage signals the uploaded file is not a recognised image.
	ErrEvidenceNotImage = errors.New("evidence must be an image")
	// ErrEvidenceUploadFailed signals the storage backend rejected the image.
	ErrEvidenceUploadFailed = errors.New("evidence upload failed")
)

// EvidenceStorage stores an evidence image and returns its public URL.
type EvidenceStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// ReportService handles citizen report intake and retrieval.
type ReportService interface {
	Submit(ctx context.Context, req dto.ReportSubmitRequest, filename string, evidence []byte) (dto.ReportResponse, error)
	Get(ctx context.Context, id string) (dto.ReportResponse, error)
	List(ctx context.Context, filter repository.ReportFilter) ([]dto.ReportResponse, int64, error)
}

// ReportConfig tunes intake limits.
type ReportConfig struct {
	MaxEvidenceBytes int64
}

// NewReportService constructs the report intake service.
func NewReportService(
	reports repository.ReportRepository,
	storage EvidenceStorage,
	validate *validator.Validate,
	logger zerolog.Logger,
	cfg ReportConfig,
) ReportService {
	if cfg.MaxEvidenceBytes <= 0 {
		cfg.MaxEvidenceBytes = 10 << 20
	}

	return &reportService{
		reports:   reports,
		storage:   storage,
		validate:  validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "report_service").Logger(),
		cfg:       cfg,
	}
}

type reportService struct {
	reports   repository.ReportRepository
	storage   EvidenceStorage
	validate  *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	cfg       ReportConfig
}

func (s *reportService) Submit(ctx context.Context, req dto.ReportSubmitRequest, filename string, evidence []byte) (dto.ReportResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		observability.EvidenceRejected().WithLabelValues("validation").Inc()
		return dto.ReportResponse{}, fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}

	if len(evidence) == 0 {
		observability.EvidenceRejected().WithLabelValues("empty").Inc()
		return dto.ReportResponse{}, fmt.Errorf("%w: evidence image is required", ErrInvalidSubmission)
	}
	if int64(len(evidence)) > s.cfg.MaxEvidenceBytes {
		observability.EvidenceRejected().WithLabelValues("too_large").Inc()
		return dto.ReportResponse{}, fmt.Errorf("%w: limit is %d bytes", ErrEvidenceTooLarge, s.cfg.MaxEvidenceBytes)
	}

	detected := mimetype.Detect(evidence)
	if !strings.HasPrefix(detected.String(), "image/") {
		observability.EvidenceRejected().WithLabelValues("not_image").Inc()
		return dto.ReportResponse{}, fmt.Errorf("%w: detected %s", ErrEvidenceNotImage, detected.String())
	}

	evidenceURL, err := s.storage.Upload(ctx, filename, bytes.NewReader(evidence))
	if err != nil {
		observability.EvidenceRejected().WithLabelValues("upload").Inc()
		return dto.ReportResponse{}, fmt.Errorf("%w: %v", ErrEvidenceUploadFailed, err)
	}

	report := models.CitizenReport{
		ID:             uuid.NewString(),
		SubmittedAt:    time.Now().UTC(),
		Lat:            req.Lat,
		Lng:            req.Lng,
		EvidenceURL:    evidenceURL,
		EvidenceSHA256: fmt.Sprintf("%x", sha256.Sum256(evidence)),
		EvidenceNotes:  s.sanitizer.Sanitize(strings.TrimSpace(req.Notes)),
		Status:         models.ReportStatusPending,
	}
	if ref := strings.TrimSpace(req.UserRef); ref != "" {
		report.UserRef = &ref
	}

	if err := s.reports.Create(ctx, &report); err != nil {
		return dto.ReportResponse{}, fmt.Errorf("failed to persist report: %w", err)
	}

	s.logger.Info().
		Str("report_id", report.ID).
		Str("mime", detected.String()).
		Bool("anonymous", report.IsAnonymous()).
		Msg("citizen report submitted")

	return dto.NewReportResponse(report), nil
}

func (s *reportService) Get(ctx context.Context, id string) (dto.ReportResponse, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReportResponse{}, ErrReportNotFound
		}
		return dto.ReportResponse{}, fmt.Errorf("failed to load report: %w", err)
	}
	return dto.NewReportResponse(report), nil
}

func (s *reportService) List(ctx context.Context, filter repository.ReportFilter) ([]dto.ReportResponse, int64, error) {
	if filter.Status != "" && !models.IsKnownReportStatus(filter.Status) {
		return nil, 0, fmt.Errorf("%w: unknown status %q", ErrInvalidSubmission, filter.Status)
	}

	reports, total, err := s.reports.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reports: %w", err)
	}
	return dto.NewReportResponseSlice(reports), total, nil
}
