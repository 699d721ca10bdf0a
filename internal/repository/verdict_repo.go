package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/civiclens/civiclens-api/internal/models"
)

// VerdictRepository persists audit verdicts keyed 1:1 by report id.
//
// Upsert is the idempotency anchor of the whole pipeline: concurrent or
// retried runs for the same report all converge onto a single row because the
// write conflicts on report_id and resolves in the database, with no external
// lock.
type VerdictRepository interface {
	Upsert(ctx context.Context, verdict *models.AuditVerdict) error
	GetByReportID(ctx context.Context, reportID string) (models.AuditVerdict, error)
	CountByRiskLevel(ctx context.Context) (map[string]int64, error)
	AverageConfidence(ctx context.Context) (float64, error)
	ListRecent(ctx context.Context, limit int) ([]models.AuditVerdict, error)
}

// NewVerdictRepository constructs an audit verdict repository.
func NewVerdictRepository(db *gorm.DB) VerdictRepository {
	return &verdictRepository{db: db}
}

type verdictRepository struct {
	db *gorm.DB
}

func (r *verdictRepository) Upsert(ctx context.Context, verdict *models.AuditVerdict) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "report_id"}},
		UpdateAll: true,
	}).Create(verdict).Error
}

func (r *verdictRepository) GetByReportID(ctx context.Context, reportID string) (models.AuditVerdict, error) {
	var verdict models.AuditVerdict
	err := r.db.WithContext(ctx).First(&verdict, "report_id = ?", reportID).Error
	if err != nil {
		return models.AuditVerdict{}, err
	}
	return verdict, nil
}

func (r *verdictRepository) CountByRiskLevel(ctx context.Context) (map[string]int64, error) {
	type row struct {
		RiskLevel string
		Total     int64
	}

	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.AuditVerdict{}).
		Select("risk_level, COUNT(*) AS total").
		Group("risk_level").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, item := range rows {
		counts[item.RiskLevel] = item.Total
	}
	return counts, nil
}

func (r *verdictRepository) AverageConfidence(ctx context.Context) (float64, error) {
	var avg *float64
	err := r.db.WithContext(ctx).
		Model(&models.AuditVerdict{}).
		Select("AVG(confidence_score)").
		Where("risk_level <> ?", models.RiskLevelUnknown).
		Scan(&avg).Error
	if err != nil {
		return 0, err
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}

func (r *verdictRepository) ListRecent(ctx context.Context, limit int) ([]models.AuditVerdict, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	var verdicts []models.AuditVerdict
	err := r.db.WithContext(ctx).Order("updated_at DESC").Limit(limit).Find(&verdicts).Error
	if err != nil {
		return nil, err
	}
	return verdicts, nil
}
