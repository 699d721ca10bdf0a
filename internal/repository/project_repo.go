package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/civiclens/civiclens-api/internal/models"
)

// ProjectRepository exposes read and seed access to official project records.
type ProjectRepository interface {
	Create(ctx context.Context, record *models.ProjectRecord) error
	ListAll(ctx context.Context) ([]models.ProjectRecord, error)
	GetByID(ctx context.Context, id string) (models.ProjectRecord, error)
	UpsertBatch(ctx context.Context, records []models.ProjectRecord) (int64, error)
}

// NewProjectRepository constructs a project record repository.
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

type projectRepository struct {
	db *gorm.DB
}

func (r *projectRepository) Create(ctx context.Context, record *models.ProjectRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *projectRepository) ListAll(ctx context.Context) ([]models.ProjectRecord, error) {
	var records []models.ProjectRecord
	if err := r.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *projectRepository) GetByID(ctx context.Context, id string) (models.ProjectRecord, error) {
	var record models.ProjectRecord
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		return models.ProjectRecord{}, err
	}
	return record, nil
}

func (r *projectRepository) UpsertBatch(ctx context.Context, records []models.ProjectRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&records)
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}
