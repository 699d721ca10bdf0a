package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/civiclens/civiclens-api/internal/config"
	"github.com/civiclens/civiclens-api/internal/database"
	"github.com/civiclens/civiclens-api/internal/geo"
	"github.com/civiclens/civiclens-api/internal/handler"
	"github.com/civiclens/civiclens-api/internal/middleware"
	"github.com/civiclens/civiclens-api/internal/models"
	"github.com/civiclens/civiclens-api/internal/repository"
	"github.com/civiclens/civiclens-api/internal/router"
	"github.com/civiclens/civiclens-api/internal/service"
	"github.com/civiclens/civiclens-api/pkg/ai"
	cloud "github.com/civiclens/civiclens-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.ProjectRecord{}, &models.CitizenReport{}, &models.AuditVerdict{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, continuing without cache and pub/sub")
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		logger.Warn().Err(err).Msg("nats unavailable, continuing without broker fan-out")
		natsConn = nil
	} else {
		defer natsConn.Close()
	}

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	aiClient, err := ai.NewOpenAIClient(ai.OpenAIConfig{
		APIKey:      cfg.OpenAIAPIKey,
		AuditModel:  cfg.AuditModel,
		VisionModel: cfg.VisionModel,
		Logger:      logger,
	})
	if err != nil {
		log.Fatalf("failed to create openai client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	projectRepo := repository.NewProjectRepository(db)
	reportRepo := repository.NewReportRepository(db)
	verdictRepo := repository.NewVerdictRepository(db)

	catalogStore := geo.NewStore()

	rootCtx, stopServices := context.WithCancel(context.Background())
	defer stopServices()

	catalogService := service.NewCatalogService(projectRepo, catalogStore, validate, logger, service.CatalogConfig{
		RefreshInterval: cfg.CatalogRefreshInterval,
		SeedEnabled:     cfg.SeedEnabled,
		SeedToken:       cfg.SeedToken,
	})
	if _, err := catalogService.Refresh(rootCtx); err != nil {
		logger.Error().Err(err).Msg("initial catalog refresh failed, matching unavailable until records load")
	}
	catalogService.Start(rootCtx)

	feedService := service.NewAuditFeedService(redisClient, natsConn, cfg.EventChannel, logger)
	feedService.Start(rootCtx)

	auditService := service.NewAuditService(reportRepo, verdictRepo, catalogStore, aiClient, aiClient, feedService, logger, service.AuditConfig{
		ModelCallTimeout: cfg.ModelCallTimeout,
	})
	reportService := service.NewReportService(reportRepo, uploader, validate, logger, service.ReportConfig{
		MaxEvidenceBytes: int64(cfg.EvidenceMaxSizeMB) << 20,
	})
	dashboardService := service.NewDashboardService(reportRepo, verdictRepo, catalogStore, redisClient, logger, service.DashboardConfig{
		CacheTTL: cfg.DashboardCacheTTL,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ReportHandler:    handler.NewReportHandler(reportService, logger),
		AuditHandler:     handler.NewAuditHandler(auditService, logger),
		ProjectHandler:   handler.NewProjectHandler(catalogService, logger),
		DashboardHandler: handler.NewDashboardHandler(dashboardService, logger),
		FeedHandler:      handler.NewFeedHandler(feedService, logger),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
