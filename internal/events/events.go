// Package events defines the Kafka events emitted and consumed by the inbox, and their
// wire encodings.
package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/afikmenashe/notification-inbox/internal/inbox"
)

// SchemaVersion of every event defined here.
const SchemaVersion = 1

// Reasons for an inbox change.
const (
	ReasonReconciled  = "RECONCILED"
	ReasonRuleChanged = "RULE_CHANGED"
)

// InboxChanged is published on the inbox.changed topic whenever a tenant's inbox
// changed, either by a reconciliation pass or by a rule write.
type InboxChanged struct {
	EventID       string    `json:"event_id"`
	SchemaVersion int       `json:"schema_version"`
	TenantID      string    `json:"tenant_id"`
	Topic         string    `json:"topic"`
	Reason        string    `json:"reason"`
	Created       int       `json:"created"`
	Updated       int       `json:"updated"`
	Reopened      int       `json:"reopened"`
	Resolved      int       `json:"resolved"`
	Suppressed    int       `json:"suppressed"`
	EntityType    string    `json:"entity_type,omitempty"`
	EntityID      string    `json:"entity_id,omitempty"`
	Mode          string    `json:"mode,omitempty"`
	ActorID       string    `json:"actor_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewInboxChanged creates an event for a tenant and topic.
func NewInboxChanged(tenantID string, topic inbox.Topic, reason string, at time.Time) *InboxChanged {
	return &InboxChanged{
		EventID:       uuid.NewString(),
		SchemaVersion: SchemaVersion,
		TenantID:      tenantID,
		Topic:         string(topic),
		Reason:        reason,
		OccurredAt:    at.UTC(),
	}
}

// Key returns the partition key. Events of a tenant stay ordered.
func (e *InboxChanged) Key() string { return e.TenantID }

// ReconcileRequested asks the reconciler to run for one tenant, or for all tenants
// when TenantID is empty.
type ReconcileRequested struct {
	EventID        string    `json:"event_id"`
	SchemaVersion  int       `json:"schema_version"`
	TenantID       string    `json:"tenant_id,omitempty"`
	LimitPerTenant int       `json:"limit_per_tenant,omitempty"`
	RequestedAt    time.Time `json:"requested_at"`
}

// Key returns the partition key.
func (e *ReconcileRequested) Key() string { return e.TenantID }

// Encoding is the wire format of an event payload.
type Encoding string

const (
	EncodingJSON     Encoding = "json"
	EncodingProtobuf Encoding = "protobuf"
)

// ContentTypeHeader carries the Encoding of a message.
const ContentTypeHeader = "content-type"

// ParseEncoding parses an encoding name. Empty means JSON.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(strings.ToLower(strings.TrimSpace(s))) {
	case "", EncodingJSON:
		return EncodingJSON, nil
	case EncodingProtobuf, "proto":
		return EncodingProtobuf, nil
	default:
		return "", fmt.Errorf("unknown event encoding: %q", s)
	}
}

// Marshal encodes an event. The protobuf encoding is a google.protobuf.Struct carrying
// the same fields as the JSON form.
func Marshal(v any, enc Encoding) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	if enc != EncodingProtobuf {
		return data, nil
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to convert event to struct: %w", err)
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to build protobuf struct: %w", err)
	}
	out, err := proto.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event protobuf: %w", err)
	}
	return out, nil
}

// Unmarshal decodes an event encoded by Marshal.
func Unmarshal(data []byte, enc Encoding, v any) error {
	if enc == EncodingProtobuf {
		var st structpb.Struct
		if err := proto.Unmarshal(data, &st); err != nil {
			return fmt.Errorf("failed to unmarshal event protobuf: %w", err)
		}
		var err error
		if data, err = json.Marshal(st.AsMap()); err != nil {
			return fmt.Errorf("failed to convert struct to event: %w", err)
		}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return nil
}
