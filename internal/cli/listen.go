package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"

	"github.com/afikmenashe/notification-inbox/internal/app"
	"github.com/afikmenashe/notification-inbox/internal/consumer"
	"github.com/afikmenashe/notification-inbox/internal/events"
	"github.com/afikmenashe/notification-inbox/internal/runner"
	"github.com/afikmenashe/notification-inbox/pkg/metrics"
)

// RequestReader reads reconcile requests with at-least-once semantics.
type RequestReader interface {
	ReadMessage(ctx context.Context) (*events.ReconcileRequested, *kafka.Message, error)
	CommitMessage(ctx context.Context, msg *kafka.Message) error
}

// NewListenCommand creates the listen command.
func NewListenCommand(rootOpts *RootOptions) *cobra.Command {
	cfg := rootOpts.Config

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Reconcile on requests from Kafka",
		Long: `Consume reconcile requests, as queued by POST /api/v1/reconcile?async=true, and run
each one. A request is committed once its run finished.

Example:
  inbox-reconciler listen --kafka-brokers localhost:9092`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.ValidateListener(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			a, err := app.New(ctx, cfg, metrics.ServiceReconciler)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := consumer.NewConsumer(cfg.KafkaBrokers, cfg.ReconcileTopic, cfg.ConsumerGroupID)
			if err != nil {
				return err
			}
			defer c.Close()

			return listen(ctx, c, a.Runner, cfg.LimitPerTenant)
		},
	}

	cmd.Flags().StringVar(&cfg.ReconcileTopic, "reconcile-topic", cfg.ReconcileTopic, "Kafka topic for reconcile requests")
	cmd.Flags().StringVar(&cfg.ConsumerGroupID, "consumer-group-id", cfg.ConsumerGroupID, "Kafka consumer group ID")

	return cmd
}

// listen runs one batch per request until ctx is done. Undecodable requests are
// committed past. A run that cannot start is left uncommitted for redelivery.
func listen(ctx context.Context, reader RequestReader, r BatchRunner, defaultLimit int) error {
	slog.Info("Listening for reconcile requests")
	for {
		select {
		case <-ctx.Done():
			slog.Info("Reconcile listener stopped")
			return nil
		default:
		}

		req, msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if msg != nil {
				slog.Warn("Skipping malformed reconcile request", "offset", msg.Offset, "error", err)
				commit(ctx, reader, msg)
				continue
			}
			slog.Error("Failed to read reconcile request", "error", err)
			continue
		}

		opts := runner.Options{TenantID: req.TenantID, LimitPerTenant: req.LimitPerTenant}
		if opts.LimitPerTenant == 0 {
			opts.LimitPerTenant = defaultLimit
		}

		summary, err := r.Run(ctx, opts)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("Requested reconciliation failed", "event_id", req.EventID, "error", err)
			continue
		}
		slog.Info("Requested reconciliation finished",
			"event_id", req.EventID,
			"run_id", summary.RunID,
			"tenants", summary.TotalTenants,
			"failed", summary.TotalFailed,
		)
		commit(ctx, reader, msg)
	}
}

func commit(ctx context.Context, reader RequestReader, msg *kafka.Message) {
	if err := reader.CommitMessage(ctx, msg); err != nil {
		slog.Error("Failed to commit offset", "offset", msg.Offset, "error", err)
	}
}
