package handlers

import (
	"context"
	"errors"

	"github.com/afikmenashe/notification-inbox/internal/events"
	"github.com/afikmenashe/notification-inbox/internal/inbox"
	"github.com/afikmenashe/notification-inbox/internal/runner"
	"github.com/afikmenashe/notification-inbox/internal/service"
	"github.com/afikmenashe/notification-inbox/pkg/metrics"
)

// mockInbox implements InboxAPI for testing.
type mockInbox struct {
	ListFn  func(ctx context.Context, tenantID string, filter inbox.Filter, limit int) (*service.ListResult, error)
	ApplyFn func(ctx context.Context, tenantID, action, notificationID string) (*inbox.Summary, error)
}

func (m *mockInbox) List(ctx context.Context, tenantID string, filter inbox.Filter, limit int) (*service.ListResult, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, tenantID, filter, limit)
	}
	return &service.ListResult{Items: []*service.NotificationView{}, Summary: &inbox.Summary{}}, nil
}

func (m *mockInbox) Apply(ctx context.Context, tenantID, action, notificationID string) (*inbox.Summary, error) {
	if m.ApplyFn != nil {
		return m.ApplyFn(ctx, tenantID, action, notificationID)
	}
	return &inbox.Summary{}, nil
}

// mockRules implements RuleAPI for testing.
type mockRules struct {
	ListFn  func(ctx context.Context, tenantID string, topic *inbox.Topic) ([]*inbox.RuleView, error)
	ApplyFn func(ctx context.Context, tenantID, actorID string, m service.RuleMutation) (*service.MutationResult, error)
}

func (m *mockRules) List(ctx context.Context, tenantID string, topic *inbox.Topic) ([]*inbox.RuleView, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, tenantID, topic)
	}
	return []*inbox.RuleView{}, nil
}

func (m *mockRules) Apply(ctx context.Context, tenantID, actorID string, mut service.RuleMutation) (*service.MutationResult, error) {
	if m.ApplyFn != nil {
		return m.ApplyFn(ctx, tenantID, actorID, mut)
	}
	return &service.MutationResult{}, nil
}

// mockRunner implements BatchRunner for testing.
type mockRunner struct {
	RunFn func(ctx context.Context, opts runner.Options) (*runner.Summary, error)
}

func (m *mockRunner) Run(ctx context.Context, opts runner.Options) (*runner.Summary, error) {
	if m.RunFn != nil {
		return m.RunFn(ctx, opts)
	}
	return &runner.Summary{TotalTenants: 1}, nil
}

// mockRequester implements ReconcileRequester for testing.
type mockRequester struct {
	requests []*events.ReconcileRequested
	err      error
}

func (m *mockRequester) PublishReconcileRequested(_ context.Context, req *events.ReconcileRequested) error {
	if m.err != nil {
		return m.err
	}
	m.requests = append(m.requests, req)
	return nil
}

// mockReader implements MetricsReader for testing.
type mockReader struct {
	snapshots map[string]*metrics.Snapshot
}

func (m *mockReader) GetServiceMetrics(_ context.Context, name string) (*metrics.Snapshot, error) {
	if s, ok := m.snapshots[name]; ok {
		return s, nil
	}
	return nil, errors.New("no metrics found for service: " + name)
}

func (m *mockReader) GetAllServiceMetrics(_ context.Context) (map[string]*metrics.Snapshot, error) {
	out := make(map[string]*metrics.Snapshot, len(m.snapshots))
	for k, v := range m.snapshots {
		out[k] = v
	}
	return out, nil
}

// mockMetrics implements MetricsRecorder for testing.
type mockMetrics struct {
	counters map[string]int
}

func (m *mockMetrics) IncrementCustom(name string) {
	if m.counters == nil {
		m.counters = make(map[string]int)
	}
	m.counters[name]++
}
