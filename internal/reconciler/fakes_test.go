package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/afikmenashe/notification-inbox/internal/inbox"
	"github.com/afikmenashe/notification-inbox/internal/signals"
)

// FakeStore is an in-memory Store.
type FakeStore struct {
	mu            sync.Mutex
	notifications map[string]*inbox.Notification
	rules         []*inbox.Rule

	ListErr   error
	InsertErr error
	// InsertConflict makes every insert report an existing dedupe key.
	InsertConflict bool

	Inserts  int
	Updates  int
	Touches  int
	Resolves int
}

func NewFakeStore() *FakeStore {
	return &FakeStore{notifications: make(map[string]*inbox.Notification)}
}

// clone copies a record the way it would come back from Postgres: the payload goes
// through the JSONB codec.
func clone(n *inbox.Notification) *inbox.Notification {
	c := *n
	raw, err := inbox.EncodePayload(n.Payload)
	if err != nil {
		panic(err)
	}
	c.Payload = inbox.DecodePayload(n.Topic, raw)
	return &c
}

func (f *FakeStore) ListTopicNotifications(ctx context.Context, tenantID string, topic inbox.Topic) ([]*inbox.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	var out []*inbox.Notification
	for _, n := range f.notifications {
		if n.TenantID == tenantID && n.Topic == topic {
			out = append(out, clone(n))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *FakeStore) ListTopicRules(ctx context.Context, tenantID string, topic inbox.Topic) ([]*inbox.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*inbox.Rule
	for _, r := range f.rules {
		if r.TenantID == tenantID && r.Topic == topic {
			c := *r
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *FakeStore) InsertNotification(ctx context.Context, n *inbox.Notification) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.InsertErr != nil {
		return false, f.InsertErr
	}
	if f.InsertConflict {
		return false, nil
	}
	for _, cur := range f.notifications {
		if cur.TenantID == n.TenantID && cur.DedupeKey == n.DedupeKey {
			return false, nil
		}
	}
	f.Inserts++
	f.notifications[n.ID] = clone(n)
	return true, nil
}

func (f *FakeStore) UpdateNotification(ctx context.Context, n *inbox.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.notifications[n.ID]
	if !ok || cur.TenantID != n.TenantID {
		return fmt.Errorf("notification %s: %w", n.ID, inbox.ErrNotFound)
	}
	f.Updates++
	f.notifications[n.ID] = clone(n)
	return nil
}

func (f *FakeStore) TouchNotifications(ctx context.Context, tenantID string, ids []string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		if n, ok := f.notifications[id]; ok && n.TenantID == tenantID {
			n.LastDetectedAt = at
			f.Touches++
		}
	}
	return nil
}

func (f *FakeStore) ResolveNotifications(ctx context.Context, tenantID string, ids []string, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, id := range ids {
		n, ok := f.notifications[id]
		if !ok || n.TenantID != tenantID || n.Status == inbox.StatusResolved {
			continue
		}
		n.Status = inbox.StatusResolved
		t := at
		n.ResolvedAt = &t
		count++
		f.Resolves++
	}
	return count, nil
}

// Seed stores a record directly.
func (f *FakeStore) Seed(n *inbox.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications[n.ID] = clone(n)
}

// SetRule stores or replaces the rule of an entity.
func (f *FakeStore) SetRule(r *inbox.Rule) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, cur := range f.rules {
		if cur.TenantID == r.TenantID && cur.Topic == r.Topic && cur.EntityType == r.EntityType && cur.EntityID == r.EntityID {
			f.rules[i] = r
			return
		}
	}
	f.rules = append(f.rules, r)
}

// MarkRead emulates the inbox action.
func (f *FakeStore) MarkRead(id string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.notifications[id]
	n.Status = inbox.StatusRead
	t := at
	n.ReadAt = &t
	n.ResolvedAt = nil
}

// Get returns a copy of a stored record, or nil.
func (f *FakeStore) Get(id string) *inbox.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notifications[id]
	if !ok {
		return nil
	}
	return clone(n)
}

// ByEntity returns the records of an entity ordered by first detection.
func (f *FakeStore) ByEntity(entityID string) []*inbox.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*inbox.Notification
	for _, n := range f.notifications {
		if n.EntityID == entityID {
			out = append(out, clone(n))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FakeSource returns a fixed set of signals.
type FakeSource struct {
	Items     []inbox.Signal
	Err       error
	LastLimit int
}

func (f *FakeSource) ListSignals(ctx context.Context, tenantID string, limit int) (*signals.Result, error) {
	f.LastLimit = limit
	if f.Err != nil {
		return nil, f.Err
	}
	items := make([]inbox.Signal, len(f.Items))
	copy(items, f.Items)
	return &signals.Result{Items: items}, nil
}

// FakeRegistry maps topics to sources.
type FakeRegistry map[inbox.Topic]signals.Source

func (f FakeRegistry) Source(topic inbox.Topic) (signals.Source, bool) {
	s, ok := f[topic]
	return s, ok
}

// FakeMetrics tracks calls.
type FakeMetrics struct {
	Passes   int
	Errors   int
	Counters Counters
}

func (f *FakeMetrics) RecordPass(_ time.Duration) { f.Passes++ }
func (f *FakeMetrics) RecordCounters(c Counters)  { f.Counters.Add(c) }
func (f *FakeMetrics) RecordError()               { f.Errors++ }

// sequentialIDs returns an id generator producing n-001, n-002, ...
func sequentialIDs() func() string {
	var i int
	return func() string {
		i++
		return fmt.Sprintf("n-%03d", i)
	}
}

// clock is a settable time source.
type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

var errBoom = errors.New("boom")
