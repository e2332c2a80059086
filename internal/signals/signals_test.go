package signals

import (
	"context"
	"testing"

	"github.com/afikmenashe/notification-inbox/internal/inbox"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	src := SourceFunc(func(ctx context.Context, tenantID string, limit int) (*Result, error) {
		return &Result{Items: []inbox.Signal{{EntityID: tenantID}}}, nil
	})

	if err := r.Register(inbox.TopicPurchaseAPDue, src); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(inbox.TopicPurchaseAPDue, src); err == nil {
		t.Error("Register() twice should fail")
	}
	if err := r.Register(inbox.Topic("BOGUS"), src); err == nil {
		t.Error("Register() unknown topic should fail")
	}
	if err := r.Register(inbox.TopicPurchaseAPDue, nil); err == nil {
		t.Error("Register() nil source should fail")
	}

	got, ok := r.Source(inbox.TopicPurchaseAPDue)
	if !ok {
		t.Fatal("Source() not found")
	}
	res, err := got.ListSignals(context.Background(), "t-1", 10)
	if err != nil || len(res.Items) != 1 || res.Items[0].EntityID != "t-1" {
		t.Errorf("ListSignals() = %+v, %v", res, err)
	}

	if _, ok := r.Source(inbox.Topic("OTHER")); ok {
		t.Error("Source() should miss unregistered topic")
	}
	if topics := r.Topics(); len(topics) != 1 || topics[0] != inbox.TopicPurchaseAPDue {
		t.Errorf("Topics() = %v", topics)
	}
}
