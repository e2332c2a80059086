package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/afikmenashe/notification-inbox/internal/inbox"
)

// DefaultReopenFields lists, per topic, the payload fields whose change reopens a record.
var DefaultReopenFields = map[inbox.Topic][]string{
	inbox.TopicPurchaseAPDue: {inbox.FieldOutstandingAmount},
}

// Result is the outcome of one reconciliation of a tenant and topic.
type Result struct {
	TenantID string      `json:"tenant_id"`
	Topic    inbox.Topic `json:"topic"`
	Counters
}

// Reconciler runs reconciliation passes.
type Reconciler struct {
	store        Store
	sources      SourceRegistry
	metrics      MetricsRecorder
	reopenFields map[inbox.Topic][]string
	topicLimits  map[inbox.Topic]int
	now          func() time.Time
	newID        func() string
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithMetrics sets the metrics recorder. A nil recorder is ignored.
func WithMetrics(m MetricsRecorder) Option {
	return func(r *Reconciler) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithIDGenerator overrides the generator of new record ids.
func WithIDGenerator(newID func() string) Option {
	return func(r *Reconciler) { r.newID = newID }
}

// WithReopenFields sets the payload fields that reopen records of topic.
// An empty list means only due status and due date changes reopen.
func WithReopenFields(topic inbox.Topic, fields ...string) Option {
	return func(r *Reconciler) { r.reopenFields[topic] = fields }
}

// WithTopicLimit caps the number of signals fetched for topic, whatever the caller asks for.
func WithTopicLimit(topic inbox.Topic, limit int) Option {
	return func(r *Reconciler) {
		if limit > 0 {
			r.topicLimits[topic] = limit
		}
	}
}

// New creates a Reconciler.
func New(store Store, sources SourceRegistry, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:        store,
		sources:      sources,
		metrics:      &NoOpMetrics{},
		reopenFields: make(map[inbox.Topic][]string, len(DefaultReopenFields)),
		topicLimits:  make(map[inbox.Topic]int),
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for topic, fields := range DefaultReopenFields {
		r.reopenFields[topic] = fields
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile runs one pass for a tenant and topic. limit bounds the number of signals
// fetched and is clamped to the allowed range.
func (r *Reconciler) Reconcile(ctx context.Context, tenantID string, topic inbox.Topic, limit int) (*Result, error) {
	start := time.Now()

	res, err := r.reconcile(ctx, tenantID, topic, limit)
	if err != nil {
		r.metrics.RecordError()
		return nil, err
	}

	r.metrics.RecordPass(time.Since(start))
	r.metrics.RecordCounters(res.Counters)
	return res, nil
}

func (r *Reconciler) reconcile(ctx context.Context, tenantID string, topic inbox.Topic, limit int) (*Result, error) {
	if tenantID == "" {
		return nil, inbox.NewValidationError("tenant_id", "is required")
	}
	src, ok := r.sources.Source(topic)
	if !ok {
		return nil, inbox.NewValidationError("topic", fmt.Sprintf("has no registered source: %s", topic))
	}
	limit = inbox.ClampSignalLimit(limit)
	if max, ok := r.topicLimits[topic]; ok && limit > max {
		limit = inbox.ClampSignalLimit(max)
	}

	sig, err := src.ListSignals(ctx, tenantID, limit)
	if err != nil {
		return nil, &inbox.SignalSourceError{TenantID: tenantID, Topic: topic, Err: err}
	}

	existing, err := r.store.ListTopicNotifications(ctx, tenantID, topic)
	if err != nil {
		return nil, err
	}
	rules, err := r.store.ListTopicRules(ctx, tenantID, topic)
	if err != nil {
		return nil, err
	}

	now := r.now()
	plan := BuildPlan(PlanInput{
		TenantID:     tenantID,
		Topic:        topic,
		Signals:      sig.Items,
		Existing:     existing,
		Rules:        rules,
		ReopenFields: r.reopenFields[topic],
		Now:          now,
		NewID:        r.newID,
	})

	if err := r.apply(ctx, tenantID, topic, plan, now); err != nil {
		return nil, err
	}

	slog.Info("Reconciled inbox",
		"tenant_id", tenantID,
		"topic", topic,
		"signals", plan.Counters.SourceSignalCount,
		"created", plan.Counters.Created,
		"updated", plan.Counters.Updated,
		"reopened", plan.Counters.Reopened,
		"resolved", plan.Counters.Resolved,
		"suppressed", plan.Counters.Suppressed,
	)

	return &Result{TenantID: tenantID, Topic: topic, Counters: plan.Counters}, nil
}

// apply writes a plan. Vanished records are resolved last.
func (r *Reconciler) apply(ctx context.Context, tenantID string, topic inbox.Topic, plan *Plan, now time.Time) error {
	for _, n := range plan.Creates {
		inserted, err := r.store.InsertNotification(ctx, n)
		if err != nil {
			return err
		}
		if !inserted {
			// another writer created the same incarnation since we listed
			slog.Warn("Notification already exists, skipping create",
				"tenant_id", tenantID,
				"topic", topic,
				"dedupe_key", n.DedupeKey,
			)
			plan.Counters.Created--
		}
	}

	for _, n := range plan.Updates {
		if err := r.store.UpdateNotification(ctx, n); err != nil {
			return err
		}
		slog.Debug("Updated notification",
			"tenant_id", tenantID,
			"notification_id", n.ID,
			"status", n.Status,
		)
	}

	if err := r.store.TouchNotifications(ctx, tenantID, plan.Touches, now); err != nil {
		return err
	}

	if _, err := r.store.ResolveNotifications(ctx, tenantID, plan.SuppressResolves, now); err != nil {
		return err
	}
	if _, err := r.store.ResolveNotifications(ctx, tenantID, plan.VanishedResolves, now); err != nil {
		return err
	}
	return nil
}
