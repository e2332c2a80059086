package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/afikmenashe/notification-inbox/internal/app"
	"github.com/afikmenashe/notification-inbox/internal/runner"
	"github.com/afikmenashe/notification-inbox/pkg/metrics"
)

// NewScheduleCommand creates the schedule command.
func NewScheduleCommand(rootOpts *RootOptions) *cobra.Command {
	cfg := rootOpts.Config

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Reconcile all tenants on a fixed interval",
		Long: `Reconcile all tenants immediately, then again every interval until interrupted.

Example:
  inbox-reconciler schedule --interval 15m --redis-addr localhost:6379`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.ValidateSchedule(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			a, err := app.New(ctx, cfg, metrics.ServiceReconciler)
			if err != nil {
				return err
			}
			defer a.Close()

			return runSchedule(ctx, a.Runner, runner.Options{LimitPerTenant: cfg.LimitPerTenant}, cfg.ScheduleInterval)
		},
	}

	cmd.Flags().DurationVar(&cfg.ScheduleInterval, "interval", cfg.ScheduleInterval, "time between runs")

	return cmd
}

// runSchedule runs r now and on every tick until ctx is done. A failed run is logged
// and the next tick tries again.
func runSchedule(ctx context.Context, r BatchRunner, opts runner.Options, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("Starting reconcile schedule", "interval", interval)
	for {
		summary, err := r.Run(ctx, opts)
		switch {
		case err != nil && ctx.Err() == nil:
			slog.Error("Scheduled reconciliation failed", "error", err)
		case err == nil:
			slog.Info("Scheduled reconciliation finished",
				"run_id", summary.RunID,
				"tenants", summary.TotalTenants,
				"failed", summary.TotalFailed,
			)
		}

		select {
		case <-ctx.Done():
			slog.Info("Reconcile schedule stopped")
			return nil
		case <-ticker.C:
		}
	}
}
