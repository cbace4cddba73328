package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"

	"github.com/spec-kit/records-service/internal/api/http/handlers"
	"github.com/spec-kit/records-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Records handlers.RecordRoutes
	Metrics *observability.Metrics
}

// ServerConfig bundles what NewApp needs.
type ServerConfig struct {
	AppName        string
	RequestTimeout time.Duration
	Logger         *zap.Logger
	Routes         RouteConfig
}

// NewApp builds a fiber application with middlewares and routes registered.
func NewApp(cfg ServerConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		DisableStartupMessage: true,
		Immutable:             true,
	})
	RegisterMiddlewares(app, cfg.Logger, cfg.Routes.Metrics, cfg.RequestTimeout)
	RegisterRoutes(app, cfg.Routes)
	return app
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health", cfg.Health.Health)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	items := app.Group("/items")
	items.Post("", cfg.Records.Create)
	items.Get("", cfg.Records.List)
	items.Get("/:id", cfg.Records.Get)
	items.Put("/:id", cfg.Records.Update)
	items.Delete("/:id", cfg.Records.Delete)
}
