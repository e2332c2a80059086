// Package inbox defines the notification inbox domain: topics, records, suppression
// rules, signals and the error taxonomy shared by the reconciler and the APIs.
package inbox

import (
	"time"
)

// Topic identifies the signal source that produced a notification.
type Topic string

const (
	// TopicPurchaseAPDue covers purchase orders whose payable is overdue or due soon.
	TopicPurchaseAPDue Topic = "PURCHASE_AP_DUE"
)

var validTopics = map[Topic]struct{}{
	TopicPurchaseAPDue: {},
}

// IsValid reports whether the topic is a known signal topic.
func (t Topic) IsValid() bool {
	_, ok := validTopics[t]
	return ok
}

// String returns the string representation of the topic.
func (t Topic) String() string {
	return string(t)
}

// Severity of a notification.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Status is the lifecycle state of a notification.
type Status string

const (
	StatusUnread   Status = "UNREAD"
	StatusRead     Status = "READ"
	StatusResolved Status = "RESOLVED"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsActive reports whether the status counts as active (anything but RESOLVED).
func (s Status) IsActive() bool {
	return s != StatusResolved
}

// Due statuses produced by due-date based signal sources.
const (
	DueStatusOverdue = "OVERDUE"
	DueStatusDueSoon = "DUE_SOON"
)

// Notification is one inbox row: a distinct (entity, coarse signal state) incarnation
// scoped to a tenant.
type Notification struct {
	ID              string     `json:"id"`
	TenantID        string     `json:"tenant_id"`
	Topic           Topic      `json:"topic"`
	EntityType      string     `json:"entity_type"`
	EntityID        string     `json:"entity_id"`
	DedupeKey       string     `json:"dedupe_key"`
	Title           string     `json:"title"`
	Message         string     `json:"message"`
	Severity        Severity   `json:"severity"`
	Status          Status     `json:"status"`
	DueStatus       string     `json:"due_status"`
	DueDate         *time.Time `json:"due_date"`
	Payload         Payload    `json:"payload"`
	FirstDetectedAt time.Time  `json:"first_detected_at"`
	LastDetectedAt  time.Time  `json:"last_detected_at"`
	ReadAt          *time.Time `json:"read_at"`
	ResolvedAt      *time.Time `json:"resolved_at"`
}

// Rule is a per-entity mute/snooze directive. At most one exists per
// (tenant, topic, entity type, entity id).
type Rule struct {
	TenantID     string     `json:"tenant_id"`
	Topic        Topic      `json:"topic"`
	EntityType   string     `json:"entity_type"`
	EntityID     string     `json:"entity_id"`
	MutedForever bool       `json:"muted_forever"`
	MutedUntil   *time.Time `json:"muted_until"`
	SnoozedUntil *time.Time `json:"snoozed_until"`
	Note         string     `json:"note"`
	UpdatedBy    string     `json:"updated_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// HasMode reports whether the rule carries at least one suppression mode.
// A rule without a mode must never be persisted.
func (r *Rule) HasMode() bool {
	return r.MutedForever || r.MutedUntil != nil || r.SnoozedUntil != nil
}

// RuleView is the client-facing projection of a rule.
type RuleView struct {
	Topic           Topic      `json:"topic"`
	EntityType      string     `json:"entity_type"`
	EntityID        string     `json:"entity_id"`
	MutedForever    bool       `json:"muted_forever"`
	MutedUntil      *time.Time `json:"muted_until"`
	SnoozedUntil    *time.Time `json:"snoozed_until"`
	Note            string     `json:"note,omitempty"`
	UpdatedBy       string     `json:"updated_by,omitempty"`
	IsSuppressedNow bool       `json:"is_suppressed_now"`
}

// NewRuleView builds the view of a rule at the given instant. Returns nil for a nil rule.
func NewRuleView(rule *Rule, now time.Time) *RuleView {
	if rule == nil {
		return nil
	}
	return &RuleView{
		Topic:           rule.Topic,
		EntityType:      rule.EntityType,
		EntityID:        rule.EntityID,
		MutedForever:    rule.MutedForever,
		MutedUntil:      rule.MutedUntil,
		SnoozedUntil:    rule.SnoozedUntil,
		Note:            rule.Note,
		UpdatedBy:       rule.UpdatedBy,
		IsSuppressedNow: IsSuppressed(rule, now),
	}
}

// Signal is an externally computed alert candidate for one business entity.
type Signal struct {
	EntityType string
	EntityID   string
	Title      string
	Message    string
	Severity   Severity
	DueStatus  string
	DueDate    *time.Time
	Payload    Payload
}

// Summary holds the inbox totals for a tenant, independent of any filter.
type Summary struct {
	UnreadCount   int64 `json:"unread_count"`
	ActiveCount   int64 `json:"active_count"`
	ResolvedCount int64 `json:"resolved_count"`
}
