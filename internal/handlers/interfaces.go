package handlers

import (
	"context"

	"github.com/afikmenashe/notification-inbox/internal/events"
	"github.com/afikmenashe/notification-inbox/internal/inbox"
	"github.com/afikmenashe/notification-inbox/internal/runner"
	"github.com/afikmenashe/notification-inbox/internal/service"
	"github.com/afikmenashe/notification-inbox/pkg/metrics"
)

// InboxAPI serves inbox listing and status actions.
type InboxAPI interface {
	List(ctx context.Context, tenantID string, filter inbox.Filter, limit int) (*service.ListResult, error)
	Apply(ctx context.Context, tenantID, action, notificationID string) (*inbox.Summary, error)
}

// RuleAPI serves suppression rule reads and writes.
type RuleAPI interface {
	List(ctx context.Context, tenantID string, topic *inbox.Topic) ([]*inbox.RuleView, error)
	Apply(ctx context.Context, tenantID, actorID string, m service.RuleMutation) (*service.MutationResult, error)
}

// BatchRunner runs reconciliation inline.
type BatchRunner interface {
	Run(ctx context.Context, opts runner.Options) (*runner.Summary, error)
}

// ReconcileRequester queues a reconciliation for the reconciler process.
type ReconcileRequester interface {
	PublishReconcileRequested(ctx context.Context, req *events.ReconcileRequested) error
}

// MetricsReader reads process snapshots.
type MetricsReader interface {
	GetServiceMetrics(ctx context.Context, serviceName string) (*metrics.Snapshot, error)
	GetAllServiceMetrics(ctx context.Context) (map[string]*metrics.Snapshot, error)
}

// MetricsRecorder defines the interface for recording metrics.
// This uses the null object pattern - a no-op implementation avoids nil checks.
type MetricsRecorder interface {
	IncrementCustom(name string)
}

// NoOpMetrics is a null object implementation of MetricsRecorder.
type NoOpMetrics struct{}

func (NoOpMetrics) IncrementCustom(_ string) {}
