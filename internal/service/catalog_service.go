package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/civiclens/civiclens-api/internal/dto"
	"github.com/civiclens/civiclens-api/internal/geo"
	"github.com/civiclens/civiclens-api/internal/models"
	"github.com/civiclens/civiclens-api/internal/observability"
	"github.com/civiclens/civiclens-api/internal/repository"
)

var (
	// ErrProjectNotFound signals the requested project record does not exist.
	ErrProjectNotFound = errors.New("project record not found")
	// ErrSeedDisabled signals catalog seeding is switched off for this environment.
	ErrSeedDisabled = errors.New("catalog seeding is disabled")
	// ErrSeedTokenInvalid signals the seeding token did not match.
	ErrSeedTokenInvalid = errors.New("invalid seed token")
	// ErrInvalidSeed signals the seed payload failed validation.
	ErrInvalidSeed = errors.New("invalid seed payload")
)

// CatalogService maintains the official project catalog and the in-memory
// nearest-neighbour index built from it.
type CatalogService interface {
	Refresh(ctx context.Context) (int, error)
	Start(ctx context.Context)
	List(ctx context.Context) ([]dto.ProjectResponse, error)
	Get(ctx context.Context, id string) (dto.ProjectResponse, error)
	Seed(ctx context.Context, req dto.ProjectSeedRequest) (int64, error)
}

// CatalogConfig tunes catalog refresh and seeding behaviour.
type CatalogConfig struct {
	RefreshInterval time.Duration
	SeedEnabled     bool
	SeedToken       string
}

// NewCatalogService constructs the catalog service.
func NewCatalogService(
	projects repository.ProjectRepository,
	store *geo.Store,
	validate *validator.Validate,
	logger zerolog.Logger,
	cfg CatalogConfig,
) CatalogService {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 5 * time.Minute
	}

	return &catalogService{
		projects: projects,
		store:    store,
		validate: validate,
		logger:   logger.With().Str("component", "catalog_service").Logger(),
		cfg:      cfg,
	}
}

type catalogService struct {
	projects repository.ProjectRepository
	store    *geo.Store
	validate *validator.Validate
	logger   zerolog.Logger
	cfg      CatalogConfig
}

// Refresh rebuilds the index snapshot from the database. Records without a
// usable location are excluded from matching but stay listable.
func (s *catalogService) Refresh(ctx context.Context) (int, error) {
	records, err := s.projects.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load project catalog: %w", err)
	}

	locatable := make([]models.ProjectRecord, 0, len(records))
	skipped := 0
	for _, record := range records {
		if !record.HasValidLocation() {
			skipped++
			continue
		}
		locatable = append(locatable, record)
	}

	s.store.Replace(geo.NewIndex(locatable))
	observability.CatalogRecords().Set(float64(len(locatable)))

	event := s.logger.Info()
	if skipped > 0 {
		event = s.logger.Warn()
	}
	event.Int("indexed", len(locatable)).Int("skipped", skipped).Msg("project catalog refreshed")

	return len(locatable), nil
}

// Start runs periodic refreshes until the context is cancelled.
func (s *catalogService) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.RefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Refresh(ctx); err != nil {
					s.logger.Error().Err(err).Msg("periodic catalog refresh failed")
				}
			}
		}
	}()
}

func (s *catalogService) List(ctx context.Context) ([]dto.ProjectResponse, error) {
	records, err := s.projects.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list project records: %w", err)
	}
	return dto.NewProjectResponseSlice(records), nil
}

func (s *catalogService) Get(ctx context.Context, id string) (dto.ProjectResponse, error) {
	record, err := s.projects.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProjectResponse{}, ErrProjectNotFound
		}
		return dto.ProjectResponse{}, fmt.Errorf("failed to load project record: %w", err)
	}
	return dto.NewProjectResponse(record), nil
}

// Seed upserts official records and rebuilds the index immediately so new
// projects become matchable without waiting for the next periodic refresh.
func (s *catalogService) Seed(ctx context.Context, req dto.ProjectSeedRequest) (int64, error) {
	if !s.cfg.SeedEnabled {
		return 0, ErrSeedDisabled
	}
	if subtle.ConstantTimeCompare([]byte(req.Token), []byte(s.cfg.SeedToken)) != 1 {
		return 0, ErrSeedTokenInvalid
	}
	if err := s.validate.Struct(req); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}

	records := make([]models.ProjectRecord, 0, len(req.Projects))
	for _, item := range req.Projects {
		if !models.IsKnownCategory(item.Category) {
			return 0, fmt.Errorf("%w: unknown category %q for project %s", ErrInvalidSeed, item.Category, item.ID)
		}
		if !models.IsKnownProjectStatus(item.Status) {
			return 0, fmt.Errorf("%w: unknown status %q for project %s", ErrInvalidSeed, item.Status, item.ID)
		}

		records = append(records, models.ProjectRecord{
			ID:          item.ID,
			Name:        item.Name,
			Category:    item.Category,
			BudgetPaise: item.BudgetPaise,
			Contractor:  item.Contractor,
			Status:      item.Status,
			Lat:         item.Lat,
			Lng:         item.Lng,
			Description: item.Description,
		})
	}

	affected, err := s.projects.UpsertBatch(ctx, records)
	if err != nil {
		return 0, fmt.Errorf("failed to seed project catalog: %w", err)
	}

	if _, err := s.Refresh(ctx); err != nil {
		s.logger.Error().Err(err).Msg("post-seed catalog refresh failed")
	}

	s.logger.Info().Int("records", len(records)).Int64("affected", affected).Msg("project catalog seeded")
	return affected, nil
}
