package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/afikmenashe/notification-inbox/internal/inbox"
)

// Inbox actions accepted by Apply.
const (
	ActionMarkRead    = "mark_read"
	ActionMarkUnread  = "mark_unread"
	ActionResolve     = "resolve"
	ActionMarkAllRead = "mark_all_read"
)

// NotificationView is a notification enriched with the rule covering its entity.
type NotificationView struct {
	*inbox.Notification
	Rule *inbox.RuleView `json:"rule"`
}

// ListResult is one page of the inbox plus tenant-wide totals.
type ListResult struct {
	Items   []*NotificationView `json:"items"`
	Summary *inbox.Summary      `json:"summary"`
}

// InboxService serves inbox queries and status actions.
type InboxService struct {
	store InboxStore
	now   func() time.Time
}

// NewInboxService creates an InboxService.
func NewInboxService(store InboxStore) *InboxService {
	return &InboxService{store: store, now: time.Now}
}

// List returns a filtered page, newest detection first. The summary ignores the filter.
func (s *InboxService) List(ctx context.Context, tenantID string, filter inbox.Filter, limit int) (*ListResult, error) {
	if tenantID == "" {
		return nil, inbox.NewValidationError("tenant_id", "is required")
	}
	limit = inbox.ClampListLimit(limit)

	items, err := s.store.ListNotifications(ctx, tenantID, filter, limit)
	if err != nil {
		return nil, err
	}
	rules, err := s.store.ListRules(ctx, tenantID, nil)
	if err != nil {
		return nil, err
	}
	summary, err := s.store.Summary(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	byEntity := make(map[string]*inbox.Rule, len(rules))
	for _, r := range rules {
		byEntity[entityKey(r.Topic, r.EntityType, r.EntityID)] = r
	}

	now := s.now()
	views := make([]*NotificationView, 0, len(items))
	for _, n := range items {
		rule := byEntity[entityKey(n.Topic, n.EntityType, n.EntityID)]
		views = append(views, &NotificationView{Notification: n, Rule: inbox.NewRuleView(rule, now)})
	}
	return &ListResult{Items: views, Summary: summary}, nil
}

// Apply runs one status action and returns the updated summary. notificationID is
// ignored for mark_all_read.
func (s *InboxService) Apply(ctx context.Context, tenantID, action, notificationID string) (*inbox.Summary, error) {
	if tenantID == "" {
		return nil, inbox.NewValidationError("tenant_id", "is required")
	}
	action = strings.ToLower(strings.TrimSpace(action))
	switch action {
	case ActionMarkRead, ActionMarkUnread, ActionResolve:
		if notificationID == "" {
			return nil, inbox.NewValidationError("notification_id", "is required")
		}
		// ids are UUIDs; anything else cannot name a record of this tenant
		if _, err := uuid.Parse(notificationID); err != nil {
			return nil, fmt.Errorf("notification %s: %w", notificationID, inbox.ErrNotFound)
		}
	case ActionMarkAllRead:
	default:
		return nil, inbox.NewValidationError("action", fmt.Sprintf("%q is not supported", action))
	}

	now := s.now()
	var err error
	switch action {
	case ActionMarkRead:
		err = s.store.MarkRead(ctx, tenantID, notificationID, now)
	case ActionMarkUnread:
		err = s.store.MarkUnread(ctx, tenantID, notificationID)
	case ActionResolve:
		err = s.store.Resolve(ctx, tenantID, notificationID, now)
	case ActionMarkAllRead:
		var n int64
		n, err = s.store.MarkAllRead(ctx, tenantID, now)
		if err == nil {
			slog.Debug("Marked all notifications read", "tenant_id", tenantID, "count", n)
		}
	}
	if err != nil {
		return nil, err
	}

	return s.store.Summary(ctx, tenantID)
}

func entityKey(topic inbox.Topic, entityType, entityID string) string {
	return string(topic) + "\x00" + entityType + "\x00" + entityID
}
