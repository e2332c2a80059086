// Package service implements the tenant-facing inbox and rule operations on top of
// the stores. Every operation takes the tenant explicitly and never reads across
// tenants.
package service

import (
	"context"
	"time"

	"github.com/afikmenashe/notification-inbox/internal/events"
	"github.com/afikmenashe/notification-inbox/internal/inbox"
)

// InboxStore defines the persistence operations needed by InboxService.
type InboxStore interface {
	ListNotifications(ctx context.Context, tenantID string, filter inbox.Filter, limit int) ([]*inbox.Notification, error)
	ListRules(ctx context.Context, tenantID string, topic *inbox.Topic) ([]*inbox.Rule, error)
	Summary(ctx context.Context, tenantID string) (*inbox.Summary, error)
	MarkRead(ctx context.Context, tenantID, id string, at time.Time) error
	MarkUnread(ctx context.Context, tenantID, id string) error
	Resolve(ctx context.Context, tenantID, id string, at time.Time) error
	MarkAllRead(ctx context.Context, tenantID string, at time.Time) (int64, error)
}

// RuleStore defines the persistence operations needed by RuleService.
type RuleStore interface {
	ListRules(ctx context.Context, tenantID string, topic *inbox.Topic) ([]*inbox.Rule, error)
	UpsertRule(ctx context.Context, r *inbox.Rule) (*inbox.Rule, error)
	DeleteRule(ctx context.Context, tenantID string, topic inbox.Topic, entityType, entityID string) (bool, error)
	ResolveEntityNotifications(ctx context.Context, tenantID string, topic inbox.Topic, entityType, entityID string, at time.Time) (int64, error)
}

// Publisher publishes inbox change events. Publishing is best effort.
type Publisher interface {
	PublishInboxChanged(ctx context.Context, evt *events.InboxChanged) error
}
