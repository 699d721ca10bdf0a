package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/civiclens/civiclens-api/internal/models"
)

func TestVerdictRepositoryUpsertConvergesToSingleRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVerdictRepository(db)

	first := models.AuditVerdict{
		ReportID:         "r-1",
		MatchedProjectID: "p-1",
		RiskLevel:        models.RiskLevelHigh,
		Discrepancies:    models.EncodeDiscrepancies([]string{"exposed rebar"}),
		Reasoning:        "visible structural damage",
		ConfidenceScore:  0.9,
	}
	require.NoError(t, repo.Upsert(context.Background(), &first))

	second := first
	second.RiskLevel = models.RiskLevelMedium
	second.ConfidenceScore = 0.7
	require.NoError(t, repo.Upsert(context.Background(), &second))

	var count int64
	require.NoError(t, db.Model(&models.AuditVerdict{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	stored, err := repo.GetByReportID(context.Background(), "r-1")
	require.NoError(t, err)
	require.Equal(t, models.RiskLevelMedium, stored.RiskLevel)
	require.InDelta(t, 0.7, stored.ConfidenceScore, 0.001)
}

func TestVerdictRepositoryGetByReportIDDecodesDiscrepancies(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVerdictRepository(db)

	verdict := models.AuditVerdict{
		ReportID:         "r-2",
		MatchedProjectID: "p-1",
		RiskLevel:        models.RiskLevelLow,
		Discrepancies:    models.EncodeDiscrepancies(nil),
		ConfidenceScore:  0.5,
	}
	require.NoError(t, repo.Upsert(context.Background(), &verdict))

	stored, err := repo.GetByReportID(context.Background(), "r-2")
	require.NoError(t, err)
	require.Equal(t, []string{}, stored.DiscrepancyList())
}

func TestVerdictRepositoryAggregates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVerdictRepository(db)

	verdicts := []models.AuditVerdict{
		{ReportID: "r-3", MatchedProjectID: "p-1", RiskLevel: models.RiskLevelHigh, Discrepancies: models.EncodeDiscrepancies(nil), ConfidenceScore: 0.8},
		{ReportID: "r-4", MatchedProjectID: "p-1", RiskLevel: models.RiskLevelHigh, Discrepancies: models.EncodeDiscrepancies(nil), ConfidenceScore: 0.6},
		{ReportID: "r-5", MatchedProjectID: "p-2", RiskLevel: models.RiskLevelUnknown, Discrepancies: models.EncodeDiscrepancies(nil), ConfidenceScore: 0},
	}
	for i := range verdicts {
		require.NoError(t, repo.Upsert(context.Background(), &verdicts[i]))
	}

	counts, err := repo.CountByRiskLevel(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), counts[models.RiskLevelHigh])
	require.Equal(t, int64(1), counts[models.RiskLevelUnknown])

	avg, err := repo.AverageConfidence(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 0.7, avg, 0.001, "degraded verdicts excluded from the average")

	recent, err := repo.ListRecent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
}
