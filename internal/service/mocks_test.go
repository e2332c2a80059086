package service

import (
	"context"
	"time"

	"github.com/afikmenashe/notification-inbox/internal/events"
	"github.com/afikmenashe/notification-inbox/internal/inbox"
)

// mockStore implements InboxStore and RuleStore for testing.
type mockStore struct {
	ListNotificationsFn          func(ctx context.Context, tenantID string, filter inbox.Filter, limit int) ([]*inbox.Notification, error)
	ListRulesFn                  func(ctx context.Context, tenantID string, topic *inbox.Topic) ([]*inbox.Rule, error)
	SummaryFn                    func(ctx context.Context, tenantID string) (*inbox.Summary, error)
	MarkReadFn                   func(ctx context.Context, tenantID, id string, at time.Time) error
	MarkUnreadFn                 func(ctx context.Context, tenantID, id string) error
	ResolveFn                    func(ctx context.Context, tenantID, id string, at time.Time) error
	MarkAllReadFn                func(ctx context.Context, tenantID string, at time.Time) (int64, error)
	UpsertRuleFn                 func(ctx context.Context, r *inbox.Rule) (*inbox.Rule, error)
	DeleteRuleFn                 func(ctx context.Context, tenantID string, topic inbox.Topic, entityType, entityID string) (bool, error)
	ResolveEntityNotificationsFn func(ctx context.Context, tenantID string, topic inbox.Topic, entityType, entityID string, at time.Time) (int64, error)
}

func (m *mockStore) ListNotifications(ctx context.Context, tenantID string, filter inbox.Filter, limit int) ([]*inbox.Notification, error) {
	if m.ListNotificationsFn != nil {
		return m.ListNotificationsFn(ctx, tenantID, filter, limit)
	}
	return nil, nil
}

func (m *mockStore) ListRules(ctx context.Context, tenantID string, topic *inbox.Topic) ([]*inbox.Rule, error) {
	if m.ListRulesFn != nil {
		return m.ListRulesFn(ctx, tenantID, topic)
	}
	return nil, nil
}

func (m *mockStore) Summary(ctx context.Context, tenantID string) (*inbox.Summary, error) {
	if m.SummaryFn != nil {
		return m.SummaryFn(ctx, tenantID)
	}
	return &inbox.Summary{}, nil
}

func (m *mockStore) MarkRead(ctx context.Context, tenantID, id string, at time.Time) error {
	if m.MarkReadFn != nil {
		return m.MarkReadFn(ctx, tenantID, id, at)
	}
	return nil
}

func (m *mockStore) MarkUnread(ctx context.Context, tenantID, id string) error {
	if m.MarkUnreadFn != nil {
		return m.MarkUnreadFn(ctx, tenantID, id)
	}
	return nil
}

func (m *mockStore) Resolve(ctx context.Context, tenantID, id string, at time.Time) error {
	if m.ResolveFn != nil {
		return m.ResolveFn(ctx, tenantID, id, at)
	}
	return nil
}

func (m *mockStore) MarkAllRead(ctx context.Context, tenantID string, at time.Time) (int64, error) {
	if m.MarkAllReadFn != nil {
		return m.MarkAllReadFn(ctx, tenantID, at)
	}
	return 0, nil
}

func (m *mockStore) UpsertRule(ctx context.Context, r *inbox.Rule) (*inbox.Rule, error) {
	if m.UpsertRuleFn != nil {
		return m.UpsertRuleFn(ctx, r)
	}
	saved := *r
	return &saved, nil
}

func (m *mockStore) DeleteRule(ctx context.Context, tenantID string, topic inbox.Topic, entityType, entityID string) (bool, error) {
	if m.DeleteRuleFn != nil {
		return m.DeleteRuleFn(ctx, tenantID, topic, entityType, entityID)
	}
	return true, nil
}

func (m *mockStore) ResolveEntityNotifications(ctx context.Context, tenantID string, topic inbox.Topic, entityType, entityID string, at time.Time) (int64, error) {
	if m.ResolveEntityNotificationsFn != nil {
		return m.ResolveEntityNotificationsFn(ctx, tenantID, topic, entityType, entityID, at)
	}
	return 0, nil
}

// mockPublisher records published events.
type mockPublisher struct {
	PublishFn func(ctx context.Context, evt *events.InboxChanged) error
	published []*events.InboxChanged
}

func (m *mockPublisher) PublishInboxChanged(ctx context.Context, evt *events.InboxChanged) error {
	m.published = append(m.published, evt)
	if m.PublishFn != nil {
		return m.PublishFn(ctx, evt)
	}
	return nil
}
