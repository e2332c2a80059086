// Package reconciler diffs the current signals of a topic against the stored inbox
// records and suppression rules of a tenant, and applies the resulting writes.
package reconciler

import (
	"context"
	"time"

	"github.com/afikmenashe/notification-inbox/internal/inbox"
	"github.com/afikmenashe/notification-inbox/internal/signals"
)

// Store is the persistence the reconciler reads and writes. Every call is tenant scoped.
type Store interface {
	// ListTopicNotifications returns all records of the tenant for topic, in any status.
	ListTopicNotifications(ctx context.Context, tenantID string, topic inbox.Topic) ([]*inbox.Notification, error)

	// ListTopicRules returns all rules of the tenant for topic.
	ListTopicRules(ctx context.Context, tenantID string, topic inbox.Topic) ([]*inbox.Rule, error)

	// InsertNotification inserts a record. Returns false if the dedupe key already exists.
	InsertNotification(ctx context.Context, n *inbox.Notification) (bool, error)

	// UpdateNotification writes the mutable fields of a record.
	UpdateNotification(ctx context.Context, n *inbox.Notification) error

	// TouchNotifications refreshes last_detected_at only.
	TouchNotifications(ctx context.Context, tenantID string, ids []string, at time.Time) error

	// ResolveNotifications resolves the non-resolved records among ids.
	ResolveNotifications(ctx context.Context, tenantID string, ids []string, at time.Time) (int64, error)
}

// SourceRegistry resolves the signal source of a topic.
type SourceRegistry interface {
	Source(topic inbox.Topic) (signals.Source, bool)
}
