package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/civiclens/civiclens-api/internal/config"
	"github.com/civiclens/civiclens-api/internal/handler"
	"github.com/civiclens/civiclens-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ReportHandler    *handler.ReportHandler
	AuditHandler     *handler.AuditHandler
	ProjectHandler   *handler.ProjectHandler
	DashboardHandler *handler.DashboardHandler
	FeedHandler      *handler.FeedHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	if deps.ReportHandler != nil {
		reports := api.Group("/reports")
		deps.ReportHandler.Register(reports)

		// Audit routes hang off individual reports.
		if deps.AuditHandler != nil {
			deps.AuditHandler.Register(reports)
		}
	}

	if deps.ProjectHandler != nil {
		projects := api.Group("/projects")
		deps.ProjectHandler.Register(projects)
	}

	if deps.DashboardHandler != nil {
		dashboard := api.Group("/dashboard")
		deps.DashboardHandler.Register(dashboard)
	}

	if deps.FeedHandler != nil {
		audits := api.Group("/audits")
		deps.FeedHandler.Register(audits)
	}

	app.Get("/metrics", observability.MetricsHandler())
}
