package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rl1809/inventory-metafields/internal/app"
	"github.com/rl1809/inventory-metafields/internal/config"
	"github.com/rl1809/inventory-metafields/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		dryRun bool
		pause  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile warehouse and vendor inventory metafields once",
		Long: `Walks every product in the shop, sums available stock at the warehouse
and vendor locations and rewrites the inventory metafields that disagree.
Configuration comes from the environment and .env files, as for the server.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("pause") {
				cfg.Pause = pause
			}

			logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(ctx, cfg, &logger, dryRun)
			if err != nil {
				return err
			}
			defer application.Close()

			run, err := application.Reconciler.Reconcile(ctx)
			if err != nil && run.ID != "" {
				return fmt.Errorf("run %s: %w", run.ID, err)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "run %s %s: %d pages, %d products, %d updated, %d unchanged\n",
				run.ID, run.Status, run.Pages, run.ProductsScanned, run.ProductsUpdated, run.ProductsSkipped)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report differences without writing metafields")
	cmd.Flags().DurationVar(&pause, "pause", 500*time.Millisecond, "pause after each product (overrides RECONCILE_PAUSE)")

	return cmd
}
