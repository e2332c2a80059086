// Package runner runs reconciliation across tenants with a bounded worker pool,
// per-tenant timeouts and per tenant+topic locking.
package runner

import (
	"context"

	"github.com/afikmenashe/notification-inbox/internal/events"
	"github.com/afikmenashe/notification-inbox/internal/inbox"
	"github.com/afikmenashe/notification-inbox/internal/reconciler"
)

// Reconciler runs one pass for a tenant and topic.
type Reconciler interface {
	Reconcile(ctx context.Context, tenantID string, topic inbox.Topic, limit int) (*reconciler.Result, error)
}

// TenantLister lists every known tenant.
type TenantLister interface {
	ListTenantIDs(ctx context.Context) ([]string, error)
}

// TopicLister lists the topics with a registered signal source.
type TopicLister interface {
	Topics() []inbox.Topic
}

// Publisher publishes inbox change events.
type Publisher interface {
	PublishInboxChanged(ctx context.Context, evt *events.InboxChanged) error
}

// MetricsRecorder defines the metrics operations needed by the runner.
type MetricsRecorder interface {
	AddCustom(name string, value uint64)
	IncrementCustom(name string)
	RecordPublished()
}

// NoOpMetrics is a null-object implementation of MetricsRecorder.
type NoOpMetrics struct{}

var _ MetricsRecorder = (*NoOpMetrics)(nil)

// AddCustom does nothing.
func (n *NoOpMetrics) AddCustom(_ string, _ uint64) {}

// IncrementCustom does nothing.
func (n *NoOpMetrics) IncrementCustom(_ string) {}

// RecordPublished does nothing.
func (n *NoOpMetrics) RecordPublished() {}
