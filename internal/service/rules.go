package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/afikmenashe/notification-inbox/internal/events"
	"github.com/afikmenashe/notification-inbox/internal/inbox"
)

// Rule mutation modes.
const (
	ModeSnooze = "SNOOZE"
	ModeMute   = "MUTE"
	ModeClear  = "CLEAR"
)

// MaxNoteLength caps the free-text note stored on a rule.
const MaxNoteLength = 500

// RuleMutation is a requested change to the rule of one entity.
type RuleMutation struct {
	Topic      string `json:"topic"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Mode       string `json:"mode"`
	Until      string `json:"until,omitempty"`
	Forever    bool   `json:"forever,omitempty"`
	Note       string `json:"note,omitempty"`
}

// MutationResult is the rule after a mutation. Rule is nil after CLEAR.
type MutationResult struct {
	Rule     *inbox.RuleView `json:"rule"`
	Resolved int64           `json:"resolved"`
}

// RuleService writes suppression rules and applies their inbox side effect.
type RuleService struct {
	store     RuleStore
	publisher Publisher
	now       func() time.Time
}

// NewRuleService creates a RuleService. publisher may be nil.
func NewRuleService(store RuleStore, publisher Publisher) *RuleService {
	return &RuleService{store: store, publisher: publisher, now: time.Now}
}

// List returns the rule views of a tenant, optionally limited to one topic.
func (s *RuleService) List(ctx context.Context, tenantID string, topic *inbox.Topic) ([]*inbox.RuleView, error) {
	if tenantID == "" {
		return nil, inbox.NewValidationError("tenant_id", "is required")
	}
	if topic != nil && !topic.IsValid() {
		return nil, inbox.NewValidationError("topic", fmt.Sprintf("%q is not supported", *topic))
	}
	rules, err := s.store.ListRules(ctx, tenantID, topic)
	if err != nil {
		return nil, err
	}
	now := s.now()
	views := make([]*inbox.RuleView, 0, len(rules))
	for _, r := range rules {
		views = append(views, inbox.NewRuleView(r, now))
	}
	return views, nil
}

// Apply validates and applies a mutation. A SNOOZE or MUTE write force-resolves
// every open notification of the entity right away; CLEAR only deletes the rule.
func (s *RuleService) Apply(ctx context.Context, tenantID, actorID string, m RuleMutation) (*MutationResult, error) {
	now := s.now()
	rule, err := s.buildRule(tenantID, actorID, m, now)
	if err != nil {
		return nil, err
	}

	if rule == nil {
		deleted, err := s.store.DeleteRule(ctx, tenantID, inbox.Topic(m.Topic), m.EntityType, m.EntityID)
		if err != nil {
			return nil, err
		}
		slog.Info("Cleared rule",
			"tenant_id", tenantID,
			"topic", m.Topic,
			"entity_type", m.EntityType,
			"entity_id", m.EntityID,
			"existed", deleted,
		)
		return &MutationResult{}, nil
	}

	saved, err := s.store.UpsertRule(ctx, rule)
	if err != nil {
		return nil, err
	}
	resolved, err := s.store.ResolveEntityNotifications(ctx, tenantID, saved.Topic, saved.EntityType, saved.EntityID, now)
	if err != nil {
		return nil, err
	}

	slog.Info("Applied rule",
		"tenant_id", tenantID,
		"actor_id", actorID,
		"topic", saved.Topic,
		"entity_type", saved.EntityType,
		"entity_id", saved.EntityID,
		"mode", m.Mode,
		"resolved", resolved,
	)

	s.publish(ctx, saved, strings.ToUpper(m.Mode), actorID, resolved, now)
	return &MutationResult{Rule: inbox.NewRuleView(saved, now), Resolved: resolved}, nil
}

// buildRule returns the rule to upsert, or nil for CLEAR.
func (s *RuleService) buildRule(tenantID, actorID string, m RuleMutation, now time.Time) (*inbox.Rule, error) {
	if tenantID == "" {
		return nil, inbox.NewValidationError("tenant_id", "is required")
	}
	topic := inbox.Topic(m.Topic)
	if !topic.IsValid() {
		return nil, inbox.NewValidationError("topic", fmt.Sprintf("%q is not supported", m.Topic))
	}
	if strings.TrimSpace(m.EntityType) == "" {
		return nil, inbox.NewValidationError("entity_type", "is required")
	}
	if strings.TrimSpace(m.EntityID) == "" {
		return nil, inbox.NewValidationError("entity_id", "is required")
	}
	if len(m.Note) > MaxNoteLength {
		return nil, inbox.NewValidationError("note", fmt.Sprintf("must be at most %d characters", MaxNoteLength))
	}

	mode := strings.ToUpper(strings.TrimSpace(m.Mode))
	if mode == ModeClear {
		return nil, nil
	}

	rule := &inbox.Rule{
		TenantID:   tenantID,
		Topic:      topic,
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		Note:       m.Note,
		UpdatedBy:  actorID,
	}

	switch mode {
	case ModeSnooze:
		if m.Forever {
			return nil, inbox.NewValidationError("forever", "is only valid with MUTE")
		}
		until, err := parseFuture(m.Until, now)
		if err != nil {
			return nil, err
		}
		rule.SnoozedUntil = &until
	case ModeMute:
		if m.Forever {
			rule.MutedForever = true
			break
		}
		until, err := parseFuture(m.Until, now)
		if err != nil {
			return nil, err
		}
		rule.MutedUntil = &until
	default:
		return nil, inbox.NewValidationError("mode", "must be one of: SNOOZE, MUTE, CLEAR")
	}
	return rule, nil
}

func parseFuture(raw string, now time.Time) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, inbox.NewValidationError("until", "is required")
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, inbox.NewValidationError("until", "must be an RFC 3339 timestamp")
	}
	if !t.After(now) {
		return time.Time{}, inbox.NewValidationError("until", "must be in the future")
	}
	return t.UTC(), nil
}

func (s *RuleService) publish(ctx context.Context, rule *inbox.Rule, mode, actorID string, resolved int64, now time.Time) {
	if s.publisher == nil {
		return
	}
	evt := events.NewInboxChanged(rule.TenantID, rule.Topic, events.ReasonRuleChanged, now)
	evt.EntityType = rule.EntityType
	evt.EntityID = rule.EntityID
	evt.Mode = mode
	evt.ActorID = actorID
	evt.Resolved = int(resolved)
	evt.Suppressed = int(resolved)
	if err := s.publisher.PublishInboxChanged(ctx, evt); err != nil {
		slog.Warn("Failed to publish rule change",
			"tenant_id", rule.TenantID,
			"entity_id", rule.EntityID,
			"error", err,
		)
	}
}
