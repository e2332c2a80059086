// Package main provides the CLI entry point for the inbox-service.
// It handles command-line flag parsing, service initialization, and HTTP server setup.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/afikmenashe/notification-inbox/internal/app"
	"github.com/afikmenashe/notification-inbox/internal/config"
	"github.com/afikmenashe/notification-inbox/internal/events"
	"github.com/afikmenashe/notification-inbox/internal/handlers"
	"github.com/afikmenashe/notification-inbox/internal/producer"
	"github.com/afikmenashe/notification-inbox/internal/router"
	"github.com/afikmenashe/notification-inbox/internal/service"
	"github.com/afikmenashe/notification-inbox/pkg/metrics"
	"github.com/afikmenashe/notification-inbox/pkg/shared"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("Failed to load environment file", "error", err)
		os.Exit(1)
	}

	// Parse command-line flags with environment variable fallbacks
	cfg := config.FromEnv()
	flag.StringVar(&cfg.HTTPPort, "http-port", cfg.HTTPPort, "HTTP server port")
	flag.StringVar(&cfg.PostgresDSN, "postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis server address (optional)")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.TopicsFile, "topics-file", cfg.TopicsFile, "Topic settings file (optional)")
	flag.StringVar(&cfg.KafkaBrokers, "kafka-brokers", cfg.KafkaBrokers, "Kafka broker addresses, comma-separated (optional)")
	flag.StringVar(&cfg.InboxChangedTopic, "inbox-changed-topic", cfg.InboxChangedTopic, "Kafka topic for inbox changed events")
	flag.StringVar(&cfg.ReconcileTopic, "reconcile-topic", cfg.ReconcileTopic, "Kafka topic for reconcile requests")
	flag.StringVar(&cfg.EventEncoding, "event-encoding", cfg.EventEncoding, "Event encoding (json, protobuf)")
	flag.BoolVar(&cfg.MigrateOnStart, "migrate", cfg.MigrateOnStart, "Apply schema migrations on start")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "Tenants reconciled concurrently by inline runs")
	flag.DurationVar(&cfg.TenantTimeout, "tenant-timeout", cfg.TenantTimeout, "Timeout of one tenant's reconciliation")
	flag.DurationVar(&cfg.LockTTL, "lock-ttl", cfg.LockTTL, "TTL of the shared reconcile lock")
	flag.Parse()

	shared.SetupLogger(cfg.LogLevel)

	slog.Info("Starting inbox-service",
		"http_port", cfg.HTTPPort,
		"postgres_dsn", shared.MaskDSN(cfg.PostgresDSN),
		"redis_addr", cfg.RedisAddr,
		"kafka_brokers", cfg.KafkaBrokers,
		"event_encoding", cfg.EventEncoding,
	)

	if err := cfg.ValidateService(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	a, err := app.New(ctx, cfg, metrics.ServiceInbox)
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		slog.Info("Tip: Start Postgres with 'docker compose up -d postgres' or ensure Postgres is running")
		os.Exit(1)
	}
	defer a.Close()

	opts := []handlers.Option{
		handlers.WithMetrics(a.Metrics),
		handlers.WithRunner(a.Runner),
	}
	if a.Redis != nil {
		opts = append(opts, handlers.WithMetricsReader(metrics.NewReader(a.Redis)))
	}

	var rulePublisher service.Publisher
	if a.Producer != nil {
		rulePublisher = a.Producer

		enc, _ := events.ParseEncoding(cfg.EventEncoding)
		requester, err := producer.NewProducer(cfg.KafkaBrokers, cfg.ReconcileTopic, enc)
		if err != nil {
			slog.Error("Failed to create Kafka producer", "topic", cfg.ReconcileTopic, "error", err)
			os.Exit(1)
		}
		defer requester.Close()
		opts = append(opts, handlers.WithReconcileRequester(requester))
	}

	h := handlers.NewHandlers(
		service.NewInboxService(a.DB),
		service.NewRuleService(a.DB, rulePublisher),
		opts...,
	)

	// Create HTTP server with router
	server := router.NewServer(cfg.HTTPPort, h, a.Metrics)

	// Start HTTP server in a goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		slog.Info("Shutting down HTTP server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Error shutting down server", "error", err)
		}
		slog.Info("HTTP server stopped")
	case err := <-serverErrChan:
		slog.Error("HTTP server error", "error", err)
		a.Close()
		os.Exit(1)
	}

	slog.Info("Inbox-service stopped")
}
