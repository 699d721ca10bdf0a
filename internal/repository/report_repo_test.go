package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/civiclens/civiclens-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// A named shared-cache DB keeps every pooled connection on the same
	// in-memory database for the duration of the test.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ProjectRecord{}, &models.CitizenReport{}, &models.AuditVerdict{}))
	return db
}

func newPendingReport(id string) models.CitizenReport {
	return models.CitizenReport{
		ID:          id,
		SubmittedAt: time.Now().UTC(),
		Lat:         19.02,
		Lng:         72.85,
		EvidenceURL: "https://files.test/" + id + ".jpg",
		Status:      models.ReportStatusPending,
	}
}

func TestReportRepositoryCompareAndSetStatusAdvancesPending(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReportRepository(db)

	report := newPendingReport("r-1")
	require.NoError(t, repo.Create(context.Background(), &report))

	changed, err := repo.CompareAndSetStatus(context.Background(), "r-1", models.ReportStatusPending, models.ReportStatusAudited)
	require.NoError(t, err)
	require.True(t, changed)

	stored, err := repo.GetByID(context.Background(), "r-1")
	require.NoError(t, err)
	require.Equal(t, models.ReportStatusAudited, stored.Status)
}

func TestReportRepositoryCompareAndSetStatusIsNoOpOnMismatch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReportRepository(db)

	report := newPendingReport("r-2")
	report.Status = models.ReportStatusRejected
	require.NoError(t, repo.Create(context.Background(), &report))

	changed, err := repo.CompareAndSetStatus(context.Background(), "r-2", models.ReportStatusPending, models.ReportStatusAudited)
	require.NoError(t, err)
	require.False(t, changed, "a report a reviewer already acted on must not be overwritten")

	stored, err := repo.GetByID(context.Background(), "r-2")
	require.NoError(t, err)
	require.Equal(t, models.ReportStatusRejected, stored.Status)
}

func TestReportRepositoryListFiltersByStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReportRepository(db)

	pending := newPendingReport("r-3")
	audited := newPendingReport("r-4")
	audited.Status = models.ReportStatusAudited
	require.NoError(t, repo.Create(context.Background(), &pending))
	require.NoError(t, repo.Create(context.Background(), &audited))

	reports, total, err := repo.List(context.Background(), ReportFilter{Status: models.ReportStatusPending})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, reports, 1)
	require.Equal(t, "r-3", reports[0].ID)
}

func TestReportRepositoryCountByStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReportRepository(db)

	for _, id := range []string{"r-5", "r-6"} {
		report := newPendingReport(id)
		require.NoError(t, repo.Create(context.Background(), &report))
	}
	audited := newPendingReport("r-7")
	audited.Status = models.ReportStatusAudited
	require.NoError(t, repo.Create(context.Background(), &audited))

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), counts[models.ReportStatusPending])
	require.Equal(t, int64(1), counts[models.ReportStatusAudited])
}
