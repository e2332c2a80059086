package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/afikmenashe/notification-inbox/internal/app"
	"github.com/afikmenashe/notification-inbox/internal/runner"
	"github.com/afikmenashe/notification-inbox/pkg/metrics"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	TenantID string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile once and print the run summary",
		Long: `Reconcile every tenant, or one tenant, once and print the run summary as JSON.

Example:
  inbox-reconciler run
  inbox-reconciler run --tenant t-42 --limit 100`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.Config
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			a, err := app.New(ctx, cfg, metrics.ServiceReconciler)
			if err != nil {
				return err
			}
			defer a.Close()

			return runOnce(ctx, a.Runner, runner.Options{
				TenantID:       opts.TenantID,
				LimitPerTenant: cfg.LimitPerTenant,
			}, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.TenantID, "tenant", "", "reconcile only this tenant")

	return cmd
}

func runOnce(ctx context.Context, r BatchRunner, opts runner.Options, w io.Writer) error {
	summary, err := r.Run(ctx, opts)
	if err != nil {
		return err
	}
	if summary.TotalFailed > 0 {
		slog.Warn("Some tenants failed to reconcile",
			"run_id", summary.RunID,
			"failed", summary.TotalFailed,
			"tenants", summary.TotalTenants,
		)
	}
	return writeSummary(w, summary)
}

func writeSummary(w io.Writer, s *runner.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
