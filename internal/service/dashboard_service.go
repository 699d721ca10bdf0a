package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/civiclens/civiclens-api/internal/dto"
	"github.com/civiclens/civiclens-api/internal/geo"
	"github.com/civiclens/civiclens-api/internal/repository"
)

const (
	dashboardCacheKey     = "civiclens:dashboard"
	dashboardRecentLimit  = 10
	dashboardDefaultCache = 2 * time.Minute
)

// DashboardService aggregates city-level audit activity for the public dashboard.
type DashboardService interface {
	Summary(ctx context.Context) (dto.DashboardResponse, error)
}

// DashboardConfig tunes caching behaviour.
type DashboardConfig struct {
	CacheTTL time.Duration
}

// NewDashboardService constructs the dashboard aggregation service. The redis
// client is optional; without it every call recomputes the aggregates.
func NewDashboardService(
	reports repository.ReportRepository,
	verdicts repository.VerdictRepository,
	store *geo.Store,
	redisClient *redis.Client,
	logger zerolog.Logger,
	cfg DashboardConfig,
) DashboardService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = dashboardDefaultCache
	}

	return &dashboardService{
		reports:  reports,
		verdicts: verdicts,
		store:    store,
		redis:    redisClient,
		logger:   logger.With().Str("component", "dashboard_service").Logger(),
		cfg:      cfg,
	}
}

type dashboardService struct {
	reports  repository.ReportRepository
	verdicts repository.VerdictRepository
	store    *geo.Store
	redis    *redis.Client
	logger   zerolog.Logger
	cfg      DashboardConfig
}

func (s *dashboardService) Summary(ctx context.Context) (dto.DashboardResponse, error) {
	if cached, ok := s.fetchCached(ctx); ok {
		return cached, nil
	}

	byStatus, err := s.reports.CountByStatus(ctx)
	if err != nil {
		return dto.DashboardResponse{}, fmt.Errorf("failed to count reports: %w", err)
	}

	byRisk, err := s.verdicts.CountByRiskLevel(ctx)
	if err != nil {
		return dto.DashboardResponse{}, fmt.Errorf("failed to count verdicts: %w", err)
	}

	avgConfidence, err := s.verdicts.AverageConfidence(ctx)
	if err != nil {
		return dto.DashboardResponse{}, fmt.Errorf("failed to aggregate confidence: %w", err)
	}

	recent, err := s.verdicts.ListRecent(ctx, dashboardRecentLimit)
	if err != nil {
		return dto.DashboardResponse{}, fmt.Errorf("failed to list recent audits: %w", err)
	}

	recentAudits := make([]dto.RecentAudit, 0, len(recent))
	for _, verdict := range recent {
		recentAudits = append(recentAudits, dto.RecentAudit{
			ReportID:         verdict.ReportID,
			MatchedProjectID: verdict.MatchedProjectID,
			RiskLevel:        verdict.RiskLevel,
			ConfidenceScore:  verdict.ConfidenceScore,
		})
	}

	response := dto.DashboardResponse{
		ReportsByStatus:   byStatus,
		VerdictsByRisk:    byRisk,
		AverageConfidence: avgConfidence,
		ProjectsIndexed:   s.store.Current().Len(),
		RecentAudits:      recentAudits,
	}

	s.cache(ctx, response)
	return response, nil
}

func (s *dashboardService) fetchCached(ctx context.Context) (dto.DashboardResponse, bool) {
	if s.redis == nil {
		return dto.DashboardResponse{}, false
	}

	payload, err := s.redis.Get(ctx, dashboardCacheKey).Result()
	if err != nil {
		return dto.DashboardResponse{}, false
	}

	var response dto.DashboardResponse
	if err := json.Unmarshal([]byte(payload), &response); err != nil {
		s.logger.Warn().Err(err).Msg("discarding malformed cached dashboard")
		return dto.DashboardResponse{}, false
	}
	return response, true
}

func (s *dashboardService) cache(ctx context.Context, response dto.DashboardResponse) {
	if s.redis == nil {
		return
	}

	payload, err := json.Marshal(response)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal dashboard for cache")
		return
	}

	if err := s.redis.Set(ctx, dashboardCacheKey, payload, s.cfg.CacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache dashboard")
	}
}
