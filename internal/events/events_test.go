package events

import (
	"testing"
	"time"

	"github.com/afikmenashe/notification-inbox/internal/inbox"
)

func TestParseEncoding(t *testing.T) {
	tests := []struct {
		in      string
		want    Encoding
		wantErr bool
	}{
		{"", EncodingJSON, false},
		{"JSON", EncodingJSON, false},
		{"protobuf", EncodingProtobuf, false},
		{"proto", EncodingProtobuf, false},
		{"avro", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEncoding(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEncoding(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseEncoding(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestInboxChanged_Encodings(t *testing.T) {
	at := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	evt := NewInboxChanged("t-1", inbox.TopicPurchaseAPDue, ReasonReconciled, at)
	evt.Created = 2
	evt.Resolved = 1

	for _, enc := range []Encoding{EncodingJSON, EncodingProtobuf} {
		t.Run(string(enc), func(t *testing.T) {
			data, err := Marshal(evt, enc)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			var got InboxChanged
			if err := Unmarshal(data, enc, &got); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if got.EventID != evt.EventID || got.TenantID != "t-1" || got.Topic != "PURCHASE_AP_DUE" {
				t.Errorf("identity = %+v", got)
			}
			if got.Created != 2 || got.Resolved != 1 || got.SchemaVersion != SchemaVersion {
				t.Errorf("counters = %+v", got)
			}
			if !got.OccurredAt.Equal(at) {
				t.Errorf("OccurredAt = %v, want %v", got.OccurredAt, at)
			}
		})
	}
}

func TestUnmarshal_Garbage(t *testing.T) {
	var evt ReconcileRequested
	if err := Unmarshal([]byte("{nope"), EncodingJSON, &evt); err == nil {
		t.Error("Unmarshal(JSON garbage) should fail")
	}
	if err := Unmarshal([]byte{0xff, 0xff, 0xff}, EncodingProtobuf, &evt); err == nil {
		t.Error("Unmarshal(protobuf garbage) should fail")
	}
}

func TestKeys(t *testing.T) {
	if k := (&InboxChanged{TenantID: "t-1"}).Key(); k != "t-1" {
		t.Errorf("InboxChanged.Key() = %q", k)
	}
	if k := (&ReconcileRequested{}).Key(); k != "" {
		t.Errorf("ReconcileRequested.Key() = %q", k)
	}
}
