package commands

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/records-service/internal/backend"
	"github.com/spec-kit/records-service/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the table for the configured record type and backend, then exit",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	deps := backend.Deps{Config: cfg, Logger: logger}
	switch cfg.Storage.RecordType {
	case config.RecordTypeTickets:
		return initialize(cmd.Context(), backend.TicketBackends(), cfg.Storage.Backend, deps)
	default:
		return initialize(cmd.Context(), backend.ItemBackends(), cfg.Storage.Backend, deps)
	}
}

func initialize[T any](ctx context.Context, registry *backend.Registry[T], name string, deps backend.Deps) error {
	store, err := backend.Bootstrap(ctx, registry, name, deps)
	if err != nil {
		return err
	}
	deps.Logger.Info("initialized", zap.String("record_type", deps.Config.Storage.RecordType))
	return store.Close()
}
