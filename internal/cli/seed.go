package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/afikmenashe/notification-inbox/internal/database"
	"github.com/afikmenashe/notification-inbox/internal/seed"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	cfg := rootOpts.Config
	opts := seed.Options{Tenants: 10, OrdersPerTenant: 25}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate tenants and purchase orders for local runs",
		Long: `Generate tenants and purchase orders with due dates around today, so a following
run produces overdue and due soon notifications.

Example:
  inbox-reconciler seed --migrate --tenants 5 --orders 40 --reset`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.PostgresDSN == "" {
				return fmt.Errorf("invalid configuration: postgres-dsn cannot be empty")
			}
			if opts.Tenants < 1 || opts.OrdersPerTenant < 0 {
				return fmt.Errorf("tenants must be at least 1 and orders cannot be negative")
			}
			if opts.Seed == 0 {
				opts.Seed = time.Now().UnixNano()
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			if cfg.MigrateOnStart {
				if err := database.Migrate(cfg.PostgresDSN); err != nil {
					return err
				}
			}

			db, err := database.NewDB(cfg.PostgresDSN)
			if err != nil {
				return err
			}
			defer db.Close()

			slog.Info("Generating seed data",
				"tenants", opts.Tenants,
				"orders_per_tenant", opts.OrdersPerTenant,
				"seed", opts.Seed,
				"reset", opts.Reset,
			)
			stats, err := seed.Run(ctx, db, seed.Generate(opts, time.Now()), opts.Reset)
			if err != nil {
				return err
			}
			slog.Info("Seed complete", "tenants", stats.Tenants, "orders", stats.Orders)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Tenants, "tenants", opts.Tenants, "number of tenants")
	cmd.Flags().IntVar(&opts.OrdersPerTenant, "orders", opts.OrdersPerTenant, "purchase orders per tenant")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "random seed (0 picks one)")
	cmd.Flags().BoolVar(&opts.Reset, "reset", false, "delete the tenants' inbox, rules and orders first")

	return cmd
}
