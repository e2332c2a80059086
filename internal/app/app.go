// Package app wires the components shared by the inbox service and the reconciler.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/afikmenashe/notification-inbox/internal/config"
	"github.com/afikmenashe/notification-inbox/internal/database"
	"github.com/afikmenashe/notification-inbox/internal/events"
	"github.com/afikmenashe/notification-inbox/internal/inbox"
	"github.com/afikmenashe/notification-inbox/internal/producer"
	"github.com/afikmenashe/notification-inbox/internal/reconciler"
	"github.com/afikmenashe/notification-inbox/internal/runner"
	"github.com/afikmenashe/notification-inbox/internal/signals"
	"github.com/afikmenashe/notification-inbox/internal/signals/payables"
	"github.com/afikmenashe/notification-inbox/pkg/metrics"
	"github.com/afikmenashe/notification-inbox/pkg/retry"
	"github.com/afikmenashe/notification-inbox/pkg/shared"
)

// App holds the connections and components of one process. Redis and Producer are nil
// when not configured.
type App struct {
	Config     *config.Config
	Topics     config.Topics
	DB         *database.DB
	Redis      *redis.Client
	Metrics    *metrics.Collector
	Producer   *producer.Producer
	Registry   *signals.Registry
	Reconciler *reconciler.Reconciler
	Runner     *runner.Runner

	closers []func() error
}

// New connects to Postgres and the optional Redis and Kafka, and builds the
// reconciliation pipeline. serviceName names the metrics snapshot of the process.
func New(ctx context.Context, cfg *config.Config, serviceName string) (*App, error) {
	a := &App{Config: cfg}

	topics, err := config.LoadTopics(cfg.TopicsFile)
	if err != nil {
		return nil, err
	}
	a.Topics = topics

	slog.Info("Connecting to PostgreSQL database", "postgres_dsn", shared.MaskDSN(cfg.PostgresDSN))
	db, err := database.NewDB(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	if cfg.MigrateOnStart {
		if err := database.Migrate(cfg.PostgresDSN); err != nil {
			a.Close()
			return nil, err
		}
	}

	if cfg.RedisAddr != "" {
		slog.Info("Connecting to Redis", "addr", cfg.RedisAddr)
		client, err := shared.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Redis = client
		a.closers = append(a.closers, client.Close)
	}

	a.Metrics = metrics.NewCollector(serviceName, a.Redis)
	a.Metrics.SetReportInterval(cfg.MetricsReportPeriod)
	a.Metrics.Start(ctx)
	a.closers = append(a.closers, func() error { a.Metrics.Stop(); return nil })

	if cfg.KafkaBrokers != "" {
		enc, err := events.ParseEncoding(cfg.EventEncoding)
		if err != nil {
			a.Close()
			return nil, err
		}
		p, err := producer.NewProducer(cfg.KafkaBrokers, cfg.InboxChangedTopic, enc)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Producer = p
		a.closers = append(a.closers, p.Close)
	}

	registry, err := NewRegistry(db, topics)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Registry = registry

	recOpts := append(topics.ReconcilerOptions(), reconciler.WithMetrics(reconciler.NewMetricsAdapter(a.Metrics)))
	a.Reconciler = reconciler.New(db, registry, recOpts...)
	a.Runner = runner.New(a.Reconciler, db, registry, a.runnerOptions()...)
	return a, nil
}

func (a *App) runnerOptions() []runner.Option {
	opts := []runner.Option{
		runner.WithWorkers(a.Config.Workers),
		runner.WithTenantTimeout(a.Config.TenantTimeout),
		runner.WithRetry(retry.DefaultConfig()),
		runner.WithMetrics(a.Metrics),
	}
	if a.Redis != nil {
		opts = append(opts, runner.WithLocker(runner.NewRedisLocker(a.Redis, a.Config.LockTTL)))
	}
	if a.Producer != nil {
		opts = append(opts, runner.WithPublisher(a.Producer))
	}
	return opts
}

// Close releases every connection in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Error("Error during shutdown", "error", err)
		}
	}
	a.closers = nil
}

// NewRegistry registers a signal source for every enabled topic.
func NewRegistry(store payables.Store, topics config.Topics) (*signals.Registry, error) {
	registry := signals.NewRegistry()
	for _, topic := range topics.Enabled() {
		settings := topics[topic]
		var src signals.Source
		switch topic {
		case inbox.TopicPurchaseAPDue:
			src = payables.New(store, payables.WithDueSoonDays(settings.DueSoonDays))
		default:
			return nil, fmt.Errorf("no signal source for topic %s", topic)
		}
		if err := registry.Register(topic, src); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
