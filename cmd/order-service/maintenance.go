package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dreschagin/order-service/internal/application/usecase"
	"github.com/dreschagin/order-service/internal/infrastructure/persistence/postgres"
	"github.com/dreschagin/order-service/pkg/config"
	"github.com/dreschagin/order-service/pkg/logger"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the logs, orders and products tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			if err := postgres.Migrate(cmd.Context(), a.pool); err != nil {
				a.log.Error("Failed to apply database schema", err)
				return errors.Join(err, a.close())
			}
			a.log.Info("Database schema applied")
			return a.close()
		},
	}
}

// newPruneCommand runs a single retention pass outside the schedule.
func newPruneCommand(ctx *commandContext) *cobra.Command {
	var threshold string
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete stored log records at or below the retention threshold once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			level := cfg.Retention.Threshold
			if strings.TrimSpace(threshold) != "" {
				level, err = logger.ParseLevel(threshold)
				if err != nil {
					return &config.ConfigError{Key: "--threshold", Err: err}
				}
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			prune, err := usecase.NewPruneLogsUseCase(postgres.NewLogStore(a.pool), level, a.metrics)
			if err != nil {
				return errors.Join(err, a.close())
			}

			deleted, err := prune.Execute(cmd.Context())
			if err != nil {
				a.log.Error("Log retention pass failed", err, "threshold", level.String())
				return errors.Join(err, a.close())
			}

			a.log.Info("Log retention pass completed", "deleted", deleted, "threshold", level.String())
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d log records at or below %s\n", deleted, level)
			return a.close()
		},
	}
	cmd.Flags().StringVar(&threshold, "threshold", "", "Highest level to delete (debug, info, warn, error); defaults to LOG_RETENTION_THRESHOLD")
	return cmd
}
