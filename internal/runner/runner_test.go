package runner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/afikmenashe/notification-inbox/internal/events"
	"github.com/afikmenashe/notification-inbox/internal/inbox"
	"github.com/afikmenashe/notification-inbox/internal/reconciler"
	"github.com/afikmenashe/notification-inbox/pkg/retry"
)

var errBoom = errors.New("boom")

type mockReconciler struct {
	ReconcileFn func(ctx context.Context, tenantID string, topic inbox.Topic, limit int) (*reconciler.Result, error)
}

func (m *mockReconciler) Reconcile(ctx context.Context, tenantID string, topic inbox.Topic, limit int) (*reconciler.Result, error) {
	return m.ReconcileFn(ctx, tenantID, topic, limit)
}

type mockTenants struct {
	ids []string
	err error
}

func (m *mockTenants) ListTenantIDs(_ context.Context) ([]string, error) {
	return m.ids, m.err
}

type mockTopics []inbox.Topic

func (m mockTopics) Topics() []inbox.Topic { return m }

type fakePublisher struct {
	mu     sync.Mutex
	events []*events.InboxChanged
	err    error
}

func (f *fakePublisher) PublishInboxChanged(_ context.Context, evt *events.InboxChanged) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, evt)
	return nil
}

type fakeMetrics struct {
	mu        sync.Mutex
	custom    map[string]uint64
	published int
}

func (f *fakeMetrics) AddCustom(name string, v uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.custom == nil {
		f.custom = make(map[string]uint64)
	}
	f.custom[name] += v
}

func (f *fakeMetrics) IncrementCustom(name string) { f.AddCustom(name, 1) }

func (f *fakeMetrics) RecordPublished() {
	f.mu.Lock()
	f.published++
	f.mu.Unlock()
}

type busyLocker struct{}

func (busyLocker) TryLock(context.Context, string) (func(), bool, error) { return nil, false, nil }

func counting(created int) *mockReconciler {
	return &mockReconciler{
		ReconcileFn: func(_ context.Context, tenantID string, topic inbox.Topic, _ int) (*reconciler.Result, error) {
			return &reconciler.Result{
				TenantID: tenantID,
				Topic:    topic,
				Counters: reconciler.Counters{Created: created, Resolved: 1, Suppressed: 2, SourceSignalCount: 5},
			}, nil
		},
	}
}

var apOnly = mockTopics{inbox.TopicPurchaseAPDue}

func TestRunner_AllTenants(t *testing.T) {
	pub := &fakePublisher{}
	m := &fakeMetrics{}
	r := New(counting(3), &mockTenants{ids: []string{"t-1", "t-2", "t-3"}}, apOnly,
		WithPublisher(pub), WithMetrics(m), WithWorkers(2))

	sum, err := r.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.TotalTenants != 3 || sum.TotalFailed != 0 {
		t.Fatalf("tenants = %d, failed = %d", sum.TotalTenants, sum.TotalFailed)
	}
	if sum.TotalCreated != 9 || sum.TotalResolved != 3 || sum.TotalSuppressed != 6 {
		t.Errorf("totals = %+v", sum)
	}
	for i, want := range []string{"t-1", "t-2", "t-3"} {
		if sum.Tenants[i].TenantID != want {
			t.Errorf("Tenants[%d] = %q, want %q", i, sum.Tenants[i].TenantID, want)
		}
	}
	if len(pub.events) != 3 || m.published != 3 {
		t.Errorf("published %d events, metric %d", len(pub.events), m.published)
	}
	if pub.events[0].Reason != events.ReasonReconciled {
		t.Errorf("Reason = %q", pub.events[0].Reason)
	}
	if m.custom["tenants_reconciled"] != 3 {
		t.Errorf("tenants_reconciled = %d", m.custom["tenants_reconciled"])
	}
	if sum.RunID == "" {
		t.Error("RunID not set")
	}
}

func TestRunner_SingleTenant(t *testing.T) {
	var gotLimit int
	rec := &mockReconciler{ReconcileFn: func(_ context.Context, tenantID string, topic inbox.Topic, limit int) (*reconciler.Result, error) {
		gotLimit = limit
		return &reconciler.Result{TenantID: tenantID, Topic: topic}, nil
	}}
	tenants := &mockTenants{err: errBoom}
	pub := &fakePublisher{}

	sum, err := New(rec, tenants, apOnly, WithPublisher(pub)).Run(context.Background(), Options{TenantID: "t-9", LimitPerTenant: 5000})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.TotalTenants != 1 || sum.Tenants[0].TenantID != "t-9" {
		t.Errorf("summary = %+v", sum)
	}
	if gotLimit != inbox.MaxSignalLimit {
		t.Errorf("limit = %d, want %d", gotLimit, inbox.MaxSignalLimit)
	}
	if len(pub.events) != 0 {
		t.Errorf("published %d events for an unchanged pass", len(pub.events))
	}
}

func TestRunner_ListTenantsError(t *testing.T) {
	_, err := New(counting(1), &mockTenants{err: errBoom}, apOnly).Run(context.Background(), Options{})
	if !errors.Is(err, errBoom) {
		t.Errorf("Run() error = %v, want errBoom", err)
	}
}

func TestRunner_FailureIsolated(t *testing.T) {
	rec := &mockReconciler{ReconcileFn: func(_ context.Context, tenantID string, topic inbox.Topic, _ int) (*reconciler.Result, error) {
		if tenantID == "bad" {
			return nil, &inbox.SignalSourceError{TenantID: tenantID, Topic: topic, Err: errBoom}
		}
		return &reconciler.Result{TenantID: tenantID, Topic: topic, Counters: reconciler.Counters{Created: 1}}, nil
	}}

	sum, err := New(rec, &mockTenants{ids: []string{"a", "bad", "c"}}, apOnly).Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.TotalFailed != 1 || sum.TotalCreated != 2 {
		t.Errorf("failed = %d, created = %d", sum.TotalFailed, sum.TotalCreated)
	}
	bad := sum.Tenants[1]
	if !bad.Failed || !strings.Contains(bad.Error, "boom") || bad.Created != 0 {
		t.Errorf("bad tenant = %+v", bad)
	}
}

func TestRunner_TopicFailureFailsTenant(t *testing.T) {
	rec := &mockReconciler{ReconcileFn: func(_ context.Context, tenantID string, topic inbox.Topic, _ int) (*reconciler.Result, error) {
		if topic == "OTHER" {
			return nil, errBoom
		}
		return &reconciler.Result{TenantID: tenantID, Topic: topic, Counters: reconciler.Counters{Created: 4}}, nil
	}}
	topics := mockTopics{inbox.TopicPurchaseAPDue, "OTHER"}

	sum, _ := New(rec, &mockTenants{ids: []string{"t-1"}}, topics).Run(context.Background(), Options{})
	ts := sum.Tenants[0]
	if !ts.Failed || sum.TotalCreated != 0 {
		t.Errorf("tenant = %+v, total created = %d", ts, sum.TotalCreated)
	}
	if len(ts.Topics) != 1 || ts.Topics[0].Topic != inbox.TopicPurchaseAPDue {
		t.Errorf("Topics = %+v, want the successful topic kept for detail", ts.Topics)
	}
}

func TestRunner_TenantTimeout(t *testing.T) {
	rec := &mockReconciler{ReconcileFn: func(ctx context.Context, _ string, _ inbox.Topic, _ int) (*reconciler.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}

	sum, err := New(rec, &mockTenants{ids: []string{"slow"}}, apOnly, WithTenantTimeout(20*time.Millisecond)).
		Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !sum.Tenants[0].Failed || !strings.Contains(sum.Tenants[0].Error, "deadline") {
		t.Errorf("tenant = %+v", sum.Tenants[0])
	}
}

func TestRunner_Locked(t *testing.T) {
	var calls int32
	rec := &mockReconciler{ReconcileFn: func(_ context.Context, tenantID string, topic inbox.Topic, _ int) (*reconciler.Result, error) {
		atomic.AddInt32(&calls, 1)
		return &reconciler.Result{TenantID: tenantID, Topic: topic}, nil
	}}

	sum, _ := New(rec, &mockTenants{ids: []string{"t-1"}}, apOnly, WithLocker(busyLocker{})).Run(context.Background(), Options{})
	if !sum.Tenants[0].Failed || !strings.Contains(sum.Tenants[0].Error, inbox.ErrLocked.Error()) {
		t.Errorf("tenant = %+v", sum.Tenants[0])
	}
	if calls != 0 {
		t.Errorf("reconciler called %d times while locked", calls)
	}
}

func TestRunner_SameTenantNotConcurrent(t *testing.T) {
	var running, overlapped int32
	rec := &mockReconciler{ReconcileFn: func(_ context.Context, tenantID string, topic inbox.Topic, _ int) (*reconciler.Result, error) {
		if atomic.AddInt32(&running, 1) > 1 {
			atomic.StoreInt32(&overlapped, 1)
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return &reconciler.Result{TenantID: tenantID, Topic: topic}, nil
	}}
	r := New(rec, &mockTenants{}, apOnly)

	var wg sync.WaitGroup
	var locked int32
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sum, _ := r.Run(context.Background(), Options{TenantID: "t-1"})
			if sum.Tenants[0].Failed {
				atomic.AddInt32(&locked, 1)
			}
		}()
	}
	wg.Wait()

	if overlapped != 0 {
		t.Error("two passes for the same tenant and topic overlapped")
	}
	if locked == 0 {
		t.Log("no run observed the lock; passes did not overlap in time")
	}
}

func TestRunner_RetriesTransientErrors(t *testing.T) {
	var calls int32
	rec := &mockReconciler{ReconcileFn: func(_ context.Context, tenantID string, topic inbox.Topic, _ int) (*reconciler.Result, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, &inbox.PersistenceError{Op: "list notifications", Err: errors.New("connection reset by peer")}
		}
		return &reconciler.Result{TenantID: tenantID, Topic: topic}, nil
	}}
	cfg := retry.Config{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, BackoffFactor: 1}

	sum, _ := New(rec, &mockTenants{ids: []string{"t-1"}}, apOnly, WithRetry(cfg)).Run(context.Background(), Options{})
	if sum.Tenants[0].Failed || calls != 2 {
		t.Errorf("tenant = %+v, calls = %d", sum.Tenants[0], calls)
	}
}

func TestRunner_PublishFailureIsBestEffort(t *testing.T) {
	m := &fakeMetrics{}
	sum, _ := New(counting(1), &mockTenants{ids: []string{"t-1"}}, apOnly,
		WithPublisher(&fakePublisher{err: errBoom}), WithMetrics(m)).Run(context.Background(), Options{})
	if sum.Tenants[0].Failed || sum.TotalCreated != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if m.custom["publish_errors"] != 1 {
		t.Errorf("publish_errors = %d", m.custom["publish_errors"])
	}
}

func TestRunner_NoTenants(t *testing.T) {
	sum, err := New(counting(1), &mockTenants{}, apOnly).Run(context.Background(), Options{})
	if err != nil || sum.TotalTenants != 0 || len(sum.Tenants) != 0 {
		t.Errorf("Run() = %+v, %v", sum, err)
	}
}

func TestLocalLocker(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()
	key := LockKey("t-1", "PURCHASE_AP_DUE")

	unlock, ok, err := l.TryLock(ctx, key)
	if err != nil || !ok {
		t.Fatalf("TryLock() = %v, %v", ok, err)
	}
	if _, ok, _ := l.TryLock(ctx, key); ok {
		t.Error("second TryLock() succeeded while held")
	}
	if _, ok, _ := l.TryLock(ctx, LockKey("t-2", "PURCHASE_AP_DUE")); !ok {
		t.Error("TryLock() for another tenant failed")
	}
	unlock()
	unlock()
	if _, ok, _ := l.TryLock(ctx, key); !ok {
		t.Error("TryLock() after unlock failed")
	}
}

func TestRedisLocker_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer client.Close()

	_, ok, err := NewRedisLocker(client, time.Minute).TryLock(context.Background(), "k")
	if err == nil || ok {
		t.Errorf("TryLock() = %v, %v, want error", ok, err)
	}
}
