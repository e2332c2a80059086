// Package cli implements the inbox-reconciler command line: one-shot batch runs, a
// schedule loop, a Kafka listener for reconcile requests and a local data seeder.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/afikmenashe/notification-inbox/internal/config"
	"github.com/afikmenashe/notification-inbox/internal/runner"
	"github.com/afikmenashe/notification-inbox/pkg/shared"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Config *config.Config
}

// BatchRunner runs one reconciliation batch.
type BatchRunner interface {
	Run(ctx context.Context, opts runner.Options) (*runner.Summary, error)
}

// NewRootCommand creates the root command of the reconciler.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Config: config.FromEnv()}
	cfg := opts.Config

	cmd := &cobra.Command{
		Use:   "inbox-reconciler",
		Short: "Reconcile tenant inboxes against their current signals",
		Long: `Reconcile tenant inboxes against their current signals.

Every pass lists the signals of each enabled topic, creates, updates, reopens and
resolves inbox notifications, and applies the tenant's snooze and mute rules.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			shared.SetupLogger(cfg.LogLevel)
			return nil
		},
		SilenceUsage: true,
	}

	f := cmd.PersistentFlags()
	f.StringVar(&cfg.PostgresDSN, "postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	f.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address for metrics and the shared lock (optional)")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug|info|warn|error)")
	f.StringVar(&cfg.TopicsFile, "topics-file", cfg.TopicsFile, "topic settings file (optional)")
	f.StringVar(&cfg.KafkaBrokers, "kafka-brokers", cfg.KafkaBrokers, "Kafka broker addresses, comma-separated (optional)")
	f.StringVar(&cfg.InboxChangedTopic, "inbox-changed-topic", cfg.InboxChangedTopic, "Kafka topic for inbox changed events")
	f.StringVar(&cfg.EventEncoding, "event-encoding", cfg.EventEncoding, "event encoding (json|protobuf)")
	f.BoolVar(&cfg.MigrateOnStart, "migrate", cfg.MigrateOnStart, "apply schema migrations on start")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "tenants reconciled concurrently")
	f.DurationVar(&cfg.TenantTimeout, "tenant-timeout", cfg.TenantTimeout, "timeout of one tenant's reconciliation")
	f.IntVar(&cfg.LimitPerTenant, "limit", cfg.LimitPerTenant, "signals fetched per tenant and topic (10-500)")
	f.DurationVar(&cfg.LockTTL, "lock-ttl", cfg.LockTTL, "TTL of the shared reconcile lock")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewScheduleCommand(opts))
	cmd.AddCommand(NewListenCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
