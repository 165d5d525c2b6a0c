package main

import (
	"sync"

	"github.com/spf13/cobra"

	"github.com/dreschagin/order-service/pkg/config"
)

type commandContext struct {
	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = config.Load()
	})
	return c.config, c.configErr
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}
	var serve serveOptions

	rootCmd := &cobra.Command{
		Use:           "order-service",
		Short:         "Order and product API with fan-out logging",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, serve)
		},
	}
	rootCmd.Flags().BoolVar(&serve.migrate, "migrate", false, "Apply the database schema before serving")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newPruneCommand(ctx))

	return rootCmd
}
