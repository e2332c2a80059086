package inbox

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// Payload is the typed fine-grained snapshot of a signal. There is one variant per
// topic; fields outside the dedupe key live here and are compared between syncs.
type Payload interface {
	// Topic returns the topic this payload variant belongs to.
	Topic() Topic
	// Diff returns the names of the fields that differ from other.
	// A payload of a different variant differs in every field.
	Diff(other Payload) []string
}

// Payload field names for PURCHASE_AP_DUE.
const (
	FieldPONumber          = "po_number"
	FieldSupplierName      = "supplier_name"
	FieldOutstandingAmount = "outstanding_amount"
	FieldTotalAmount       = "total_amount"
	FieldCurrency          = "currency"
)

// APDuePayload is the snapshot of a purchase order payable.
type APDuePayload struct {
	PONumber          string  `json:"po_number"`
	SupplierName      string  `json:"supplier_name"`
	OutstandingAmount float64 `json:"outstanding_amount"`
	TotalAmount       float64 `json:"total_amount"`
	Currency          string  `json:"currency"`
}

// Topic implements Payload.
func (p *APDuePayload) Topic() Topic { return TopicPurchaseAPDue }

// Diff implements Payload.
func (p *APDuePayload) Diff(other Payload) []string {
	o, ok := other.(*APDuePayload)
	if !ok || o == nil {
		return []string{FieldPONumber, FieldSupplierName, FieldOutstandingAmount, FieldTotalAmount, FieldCurrency}
	}
	var changed []string
	if p.PONumber != o.PONumber {
		changed = append(changed, FieldPONumber)
	}
	if p.SupplierName != o.SupplierName {
		changed = append(changed, FieldSupplierName)
	}
	if p.OutstandingAmount != o.OutstandingAmount {
		changed = append(changed, FieldOutstandingAmount)
	}
	if p.TotalAmount != o.TotalAmount {
		changed = append(changed, FieldTotalAmount)
	}
	if p.Currency != o.Currency {
		changed = append(changed, FieldCurrency)
	}
	return changed
}

// NewPayload returns an empty payload of the topic's variant, or nil for an unknown topic.
func NewPayload(topic Topic) Payload {
	switch topic {
	case TopicPurchaseAPDue:
		return &APDuePayload{}
	default:
		return nil
	}
}

// EncodePayload serializes a payload for storage. A nil payload encodes as an empty object.
func EncodePayload(p Payload) ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return data, nil
}

// DecodePayload parses a stored payload into the topic's variant.
// Malformed or missing data degrades to the empty variant; it never fails.
func DecodePayload(topic Topic, raw []byte, warnAttrs ...any) Payload {
	p := NewPayload(topic)
	if p == nil {
		slog.Warn("Unknown payload topic", append([]any{"topic", topic}, warnAttrs...)...)
		return nil
	}
	if len(raw) == 0 {
		return p
	}
	if err := json.Unmarshal(raw, p); err != nil {
		slog.Warn("Failed to unmarshal payload JSON", append([]any{"error", err, "topic", topic}, warnAttrs...)...)
		return NewPayload(topic)
	}
	return p
}
