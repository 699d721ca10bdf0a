package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/civiclens/civiclens-api/internal/models"
)

// ReportFilter narrows report listings.
type ReportFilter struct {
	Status  string
	Limit   int
	UserRef string
	Offset  int
}

// ReportRepository exposes persistence helpers for citizen reports.
//
// CompareAndSetStatus is the only status mutation the audit pipeline is
// allowed to perform: the update carries the expected current status in its
// WHERE clause, so a report a human reviewer has already moved on is left
// untouched and the call reports zero rows changed.
type ReportRepository interface {
	Create(ctx context.Context, report *models.CitizenReport) error
	GetByID(ctx context.Context, id string) (models.CitizenReport, error)
	List(ctx context.Context, filter ReportFilter) ([]models.CitizenReport, int64, error)
	CompareAndSetStatus(ctx context.Context, id, expectedOld, next string) (bool, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// NewReportRepository constructs a citizen report repository.
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

type reportRepository struct {
	db *gorm.DB
}

func (r *reportRepository) Create(ctx context.Context, report *models.CitizenReport) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *reportRepository) GetByID(ctx context.Context, id string) (models.CitizenReport, error) {
	var report models.CitizenReport
	err := r.db.WithContext(ctx).First(&report, "id = ?", id).Error
	if err != nil {
		return models.CitizenReport{}, err
	}
	return report, nil
}

func (r *reportRepository) List(ctx context.Context, filter ReportFilter) ([]models.CitizenReport, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.CitizenReport{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.UserRef != "" {
		query = query.Where("user_ref = ?", filter.UserRef)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var reports []models.CitizenReport
	err := query.Order("submitted_at DESC").Limit(limit).Offset(filter.Offset).Find(&reports).Error
	if err != nil {
		return nil, 0, err
	}

	return reports, total, nil
}

func (r *reportRepository) CompareAndSetStatus(ctx context.Context, id, expectedOld, next string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CitizenReport{}).
		Where("id = ? AND status = ?", id, expectedOld).
		Update("status", next)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *reportRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Status string
		Total  int64
	}

	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.CitizenReport{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, item := range rows {
		counts[item.Status] = item.Total
	}
	return counts, nil
}
