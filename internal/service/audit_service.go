package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/civiclens/civiclens-api/internal/dto"
	"github.com/civiclens/civiclens-api/internal/geo"
	"github.com/civiclens/civiclens-api/internal/models"
	"github.com/civiclens/civiclens-api/internal/observability"
	"github.com/civiclens/civiclens-api/internal/repository"
	"github.com/civiclens/civiclens-api/pkg/ai"
)

// ErrReportNotFound indicates the report cannot be located.
var ErrReportNotFound = errors.New("report not found")

// ErrVerdictNotFound indicates no verdict has been stored for the report yet.
var ErrVerdictNotFound = errors.New("verdict not found")

// ErrNoProjectsConfigured indicates the geo index holds no records, so no
// match can be made. Not retryable until records exist.
var ErrNoProjectsConfigured = errors.New("no project records configured")

// ErrEvidenceAnalysisFailed indicates the vision model call failed or timed
// out. Retryable.
var ErrEvidenceAnalysisFailed = errors.New("evidence analysis failed")

// ErrVerdictGenerationFailed indicates the verdict model call failed, timed
// out, or returned a payload failing schema validation. Retryable.
var ErrVerdictGenerationFailed = errors.New("verdict generation failed")

// ErrGenuineVerdictExists indicates a fallback write was refused because the
// report already carries a real model judgement.
var ErrGenuineVerdictExists = errors.New("report already carries a genuine verdict")

// Stages of a single audit run. Failed is terminal and reachable from every
// stage before Done.
const (
	auditStageStarted            = "Started"
	auditStageLocatingRecord     = "LocatingRecord"
	auditStageDescribingEvidence = "DescribingEvidence"
	auditStageEvaluating         = "Evaluating"
	auditStagePersisting         = "Persisting"
	auditStageDone               = "Done"
	auditStageFailed             = "Failed"
)

const fallbackDiscrepancy = "Audit process failed."

// AuditService runs the audit pipeline for citizen reports.
//
// Run is safe to retry and safe to invoke concurrently for the same report:
// the verdict upsert is the single ordering mechanism, and the status advance
// is a compare-and-set that never overwrites reviewer decisions.
type AuditService interface {
	Run(ctx context.Context, reportID string) (dto.VerdictResponse, error)
	Verdict(ctx context.Context, reportID string) (dto.VerdictResponse, error)
	RecordFallback(ctx context.Context, reportID string) (dto.VerdictResponse, error)
}

// AuditEventSink receives terminal audit events for fan-out. Publishing is
// best-effort and must never fail a run.
type AuditEventSink interface {
	PublishAuditEvent(ctx context.Context, event dto.AuditEvent)
}

// AuditConfig carries orchestrator knobs.
type AuditConfig struct {
	ModelCallTimeout time.Duration
	Provider         string
}

type auditService struct {
	reports   repository.ReportRepository
	verdicts  repository.VerdictRepository
	catalog   *geo.Store
	describer ai.Describer
	judge     ai.Judge
	events    AuditEventSink
	logger    zerolog.Logger
	tracer    trace.Tracer
	config    AuditConfig
}

// NewAuditService constructs the audit pipeline orchestrator.
func NewAuditService(reports repository.ReportRepository, verdicts repository.VerdictRepository, catalog *geo.Store, describer ai.Describer, judge ai.Judge, events AuditEventSink, logger zerolog.Logger, cfg AuditConfig) AuditService {
	if cfg.ModelCallTimeout <= 0 {
		cfg.ModelCallTimeout = 45 * time.Second
	}
	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}

	return &auditService{
		reports:   reports,
		verdicts:  verdicts,
		catalog:   catalog,
		describer: describer,
		judge:     judge,
		events:    events,
		logger:    logger.With().Str("component", "audit_service").Logger(),
		tracer:    otel.Tracer("github.com/civiclens/civiclens-api/internal/service/audit"),
		config:    cfg,
	}
}

func (s *auditService) Run(ctx context.Context, reportID string) (dto.VerdictResponse, error) {
	ctx, span := s.tracer.Start(ctx, "audit.run", trace.WithAttributes(
		attribute.String("report_id", reportID),
	))
	defer span.End()

	start := time.Now()
	stage := auditStageStarted
	logger := s.logger.With().Str("report_id", reportID).Logger()

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.VerdictResponse{}, ErrReportNotFound
		}
		return dto.VerdictResponse{}, err
	}

	// Idempotency short-circuit: a genuine verdict already exists, so the
	// model must not be billed a second time. A degraded Unknown verdict
	// does not block a retry and is overwritten by the upsert below.
	existing, err := s.verdicts.GetByReportID(ctx, reportID)
	switch {
	case err == nil && !existing.IsDegraded():
		// The verdict write committed on an earlier run but the status
		// advance may not have. Re-issue the compare-and-set here so a
		// retry still completes the transition; a miss stays a no-op.
		changed, casErr := s.reports.CompareAndSetStatus(ctx, reportID, models.ReportStatusPending, models.ReportStatusAudited)
		if casErr != nil {
			return dto.VerdictResponse{}, casErr
		}
		if changed {
			logger.Info().Msg("status advance completed on retry")
		}
		logger.Info().Msg("verdict already stored, skipping audit run")
		span.SetAttributes(attribute.Bool("audit.short_circuit", true))
		return dto.NewVerdictResponse(existing), nil
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return dto.VerdictResponse{}, err
	}

	// One snapshot for the whole run, even if a catalog refresh lands
	// mid-flight.
	snapshot := s.catalog.Current()

	s.transition(logger, &stage, auditStageLocatingRecord)
	record, err := snapshot.Nearest(report.Lat, report.Lng)
	if err != nil {
		return dto.VerdictResponse{}, s.fail(ctx, span, logger, &stage, start, reportID, "no_projects", fmt.Errorf("%w: %v", ErrNoProjectsConfigured, err))
	}
	span.SetAttributes(attribute.String("audit.matched_project_id", record.ID))

	s.transition(logger, &stage, auditStageDescribingEvidence)
	description, err := s.describe(ctx, report)
	if err != nil {
		return dto.VerdictResponse{}, s.fail(ctx, span, logger, &stage, start, reportID, "evidence_analysis", fmt.Errorf("%w: %v", ErrEvidenceAnalysisFailed, err))
	}

	s.transition(logger, &stage, auditStageEvaluating)
	result, err := s.evaluate(ctx, record, description)
	if err != nil {
		return dto.VerdictResponse{}, s.fail(ctx, span, logger, &stage, start, reportID, "verdict_generation", fmt.Errorf("%w: %v", ErrVerdictGenerationFailed, err))
	}

	// Unknown is reserved for failed runs; a model emitting it has not
	// produced a usable judgement.
	if result.RiskLevel == models.RiskLevelUnknown || !models.IsKnownRiskLevel(result.RiskLevel) {
		return dto.VerdictResponse{}, s.fail(ctx, span, logger, &stage, start, reportID, "verdict_generation", fmt.Errorf("%w: model returned reserved risk level %q", ErrVerdictGenerationFailed, result.RiskLevel))
	}

	s.transition(logger, &stage, auditStagePersisting)
	verdict := models.AuditVerdict{
		ReportID:         reportID,
		MatchedProjectID: record.ID,
		RiskLevel:        result.RiskLevel,
		Discrepancies:    models.EncodeDiscrepancies(result.Discrepancies),
		Reasoning:        result.Reasoning,
		ConfidenceScore:  clampScore(result.Confidence),
		Provider:         s.config.Provider,
		Raw:              result.Raw,
	}
	if err := s.verdicts.Upsert(ctx, &verdict); err != nil {
		return dto.VerdictResponse{}, s.fail(ctx, span, logger, &stage, start, reportID, "persistence", err)
	}

	changed, err := s.reports.CompareAndSetStatus(ctx, reportID, models.ReportStatusPending, models.ReportStatusAudited)
	if err != nil {
		return dto.VerdictResponse{}, s.fail(ctx, span, logger, &stage, start, reportID, "persistence", err)
	}
	if !changed {
		// A reviewer already moved the report past Pending. The verdict
		// write stands; the status stays theirs.
		logger.Info().Msg("report status no longer pending, skipping transition")
	}

	s.transition(logger, &stage, auditStageDone)
	observability.AuditRuns().WithLabelValues("completed").Inc()
	observability.AuditRunDuration().WithLabelValues("completed").Observe(time.Since(start).Seconds())
	span.SetStatus(codes.Ok, "audit completed")

	if s.events != nil {
		s.events.PublishAuditEvent(ctx, dto.AuditEvent{
			ReportID:         reportID,
			MatchedProjectID: record.ID,
			RiskLevel:        verdict.RiskLevel,
			Outcome:          dto.AuditOutcomeCompleted,
			OccurredAt:       time.Now().UTC(),
		})
	}

	return dto.NewVerdictResponse(verdict), nil
}

func (s *auditService) Verdict(ctx context.Context, reportID string) (dto.VerdictResponse, error) {
	verdict, err := s.verdicts.GetByReportID(ctx, reportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.VerdictResponse{}, ErrVerdictNotFound
		}
		return dto.VerdictResponse{}, err
	}
	return dto.NewVerdictResponse(verdict), nil
}

// RecordFallback stores the degraded Unknown verdict after a failed run. This
// is an explicit caller decision, never an automatic default, and it leaves
// the report status untouched so a later retry can still produce a genuine
// verdict.
func (s *auditService) RecordFallback(ctx context.Context, reportID string) (dto.VerdictResponse, error) {
	if _, err := s.reports.GetByID(ctx, reportID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.VerdictResponse{}, ErrReportNotFound
		}
		return dto.VerdictResponse{}, err
	}

	existing, err := s.verdicts.GetByReportID(ctx, reportID)
	if err == nil && !existing.IsDegraded() {
		return dto.VerdictResponse{}, fmt.Errorf("%w: %s", ErrGenuineVerdictExists, reportID)
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.VerdictResponse{}, err
	}

	verdict := models.AuditVerdict{
		ReportID:        reportID,
		RiskLevel:       models.RiskLevelUnknown,
		Discrepancies:   models.EncodeDiscrepancies([]string{fallbackDiscrepancy}),
		Reasoning:       "The audit pipeline did not complete for this report.",
		ConfidenceScore: 0,
		Provider:        s.config.Provider,
	}
	if err := s.verdicts.Upsert(ctx, &verdict); err != nil {
		return dto.VerdictResponse{}, err
	}

	s.logger.Warn().Str("report_id", reportID).Msg("degraded fallback verdict recorded")
	return dto.NewVerdictResponse(verdict), nil
}

func (s *auditService) describe(ctx context.Context, report models.CitizenReport) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.config.ModelCallTimeout)
	defer cancel()

	return s.describer.Describe(callCtx, ai.Evidence{
		ImageURL: report.EvidenceURL,
		Notes:    report.EvidenceNotes,
	})
}

func (s *auditService) evaluate(ctx context.Context, record models.ProjectRecord, description string) (ai.VerdictResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.config.ModelCallTimeout)
	defer cancel()

	return s.judge.Evaluate(callCtx, ai.VerdictInput{
		Project: ai.ProjectFacts{
			ID:          record.ID,
			Name:        record.Name,
			Category:    record.Category,
			BudgetPaise: record.BudgetPaise,
			Contractor:  record.Contractor,
			Status:      record.Status,
			Description: record.Description,
		},
		Description: description,
	})
}

func (s *auditService) transition(logger zerolog.Logger, stage *string, next string) {
	logger.Debug().Str("from", *stage).Str("to", next).Msg("audit stage transition")
	*stage = next
}

// fail marks the run terminal without touching the report: status stays
// Pending and no verdict row is written, so the caller can always re-invoke
// Run.
func (s *auditService) fail(ctx context.Context, span trace.Span, logger zerolog.Logger, stage *string, start time.Time, reportID, reason string, err error) error {
	failedFrom := *stage
	s.transition(logger, stage, auditStageFailed)

	observability.AuditRuns().WithLabelValues(reason).Inc()
	observability.AuditRunDuration().WithLabelValues("failed").Observe(time.Since(start).Seconds())
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	logger.Error().Err(err).Str("failed_from", failedFrom).Msg("audit run failed")

	if s.events != nil {
		s.events.PublishAuditEvent(ctx, dto.AuditEvent{
			ReportID:   reportID,
			Outcome:    dto.AuditOutcomeFailed,
			Reason:     reason,
			OccurredAt: time.Now().UTC(),
		})
	}

	return err
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
