package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/civiclens/civiclens-api/internal/config"
	"github.com/civiclens/civiclens-api/internal/geo"
	"github.com/civiclens/civiclens-api/internal/handler"
	"github.com/civiclens/civiclens-api/internal/models"
	"github.com/civiclens/civiclens-api/internal/repository"
	"github.com/civiclens/civiclens-api/internal/router"
	"github.com/civiclens/civiclens-api/internal/service"
	"github.com/civiclens/civiclens-api/pkg/ai"
)

type testUploader struct{}

func (u *testUploader) Upload(_ context.Context, name string, _ io.Reader) (string, error) {
	return "https://files.test/" + name, nil
}

type testDescriber struct {
	description string
	err         error
}

func (d *testDescriber) Describe(_ context.Context, _ ai.Evidence) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	return d.description, nil
}

type testJudge struct {
	result ai.VerdictResult
	err    error
}

func (j *testJudge) Evaluate(_ context.Context, _ ai.VerdictInput) (ai.VerdictResult, error) {
	if j.err != nil {
		return ai.VerdictResult{}, j.err
	}
	return j.result, nil
}

type testEnv struct {
	app     *fiber.App
	db      *gorm.DB
	store   *geo.Store
	judge   *testJudge
	catalog service.CatalogService
}

func setupTestApp(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ProjectRecord{}, &models.CitizenReport{}, &models.AuditVerdict{}))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	projectRepo := repository.NewProjectRepository(db)
	reportRepo := repository.NewReportRepository(db)
	verdictRepo := repository.NewVerdictRepository(db)

	store := geo.NewStore()
	judge := &testJudge{result: ai.VerdictResult{
		RiskLevel:     models.RiskLevelHigh,
		Discrepancies: []string{"exposed rebar"},
		Reasoning:     "evidence contradicts reported progress",
		Confidence:    0.9,
	}}
	describer := &testDescriber{description: "visible large cracks on pillar"}

	catalogService := service.NewCatalogService(projectRepo, store, validate, logger, service.CatalogConfig{
		SeedEnabled: true,
		SeedToken:   "s3cret",
	})
	auditService := service.NewAuditService(reportRepo, verdictRepo, store, describer, judge, nil, logger, service.AuditConfig{})
	reportService := service.NewReportService(reportRepo, &testUploader{}, validate, logger, service.ReportConfig{})
	dashboardService := service.NewDashboardService(reportRepo, verdictRepo, store, nil, logger, service.DashboardConfig{})

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test"}, router.Dependencies{
		ReportHandler:    handler.NewReportHandler(reportService, logger),
		AuditHandler:     handler.NewAuditHandler(auditService, logger),
		ProjectHandler:   handler.NewProjectHandler(catalogService, logger),
		DashboardHandler: handler.NewDashboardHandler(dashboardService, logger),
	})

	return &testEnv{app: app, db: db, store: store, judge: judge, catalog: catalogService}
}

func (e *testEnv) seedProjects(t *testing.T, records ...models.ProjectRecord) {
	t.Helper()
	for i := range records {
		require.NoError(t, e.db.Create(&records[i]).Error)
	}
	_, err := e.catalog.Refresh(context.Background())
	require.NoError(t, err)
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer func() {
		_ = resp.Body.Close()
	}()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}
