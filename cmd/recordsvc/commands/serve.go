package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/records-service/internal/api/http"
	"github.com/spec-kit/records-service/internal/api/http/handlers"
	"github.com/spec-kit/records-service/internal/backend"
	"github.com/spec-kit/records-service/internal/config"
	"github.com/spec-kit/records-service/internal/domain"
	"github.com/spec-kit/records-service/internal/events"
	"github.com/spec-kit/records-service/internal/observability"
	"github.com/spec-kit/records-service/internal/service"
	"github.com/spec-kit/records-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cfg.Storage.RecordType {
	case config.RecordTypeTickets:
		return serve[domain.Ticket](ctx, cfg, logger, domain.TicketSchema{}, backend.TicketBackends())
	default:
		return serve[domain.Item](ctx, cfg, logger, domain.ItemSchema{}, backend.ItemBackends())
	}
}

func serve[T any](ctx context.Context, cfg *config.Config, logger *zap.Logger, schema domain.Schema[T], registry *backend.Registry[T]) error {
	logger = logger.With(zap.String("record_type", cfg.Storage.RecordType), zap.String("backend", cfg.Storage.Backend))

	store, err := backend.Bootstrap(ctx, registry, cfg.Storage.Backend, backend.Deps{Config: cfg, Logger: logger})
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	records := service.NewRecordService(service.RecordDependencies[T]{
		Schema:     schema,
		Store:      store,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	app := httptransport.NewApp(httptransport.ServerConfig{
		AppName:        cfg.App.Name,
		RequestTimeout: cfg.App.RequestTimeout(),
		Logger:         logger,
		Routes: httptransport.RouteConfig{
			Health:  handlers.NewHealthHandler(),
			Records: handlers.NewRecordsHandler(records),
			Metrics: observability.NewMetrics(),
		},
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()), zap.String("version", cfg.App.Version))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("fiber listen: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down")
	}
	return app.ShutdownWithTimeout(shutdownTimeout)
}
