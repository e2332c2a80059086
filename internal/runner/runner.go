package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/afikmenashe/notification-inbox/internal/events"
	"github.com/afikmenashe/notification-inbox/internal/inbox"
	"github.com/afikmenashe/notification-inbox/internal/reconciler"
	"github.com/afikmenashe/notification-inbox/pkg/retry"
)

const (
	// DefaultWorkers bounds how many tenants reconcile at once.
	DefaultWorkers = 4
	// DefaultTenantTimeout bounds one tenant's pass over all topics.
	DefaultTenantTimeout = 60 * time.Second
)

// Options select what one batch run covers.
type Options struct {
	TenantID       string // empty runs every tenant
	LimitPerTenant int    // clamped to [10, 500], 0 means 200
}

// TenantSummary is the outcome for one tenant. A failed tenant reports its error
// instead of counters.
type TenantSummary struct {
	TenantID string               `json:"tenant_id"`
	Failed   bool                 `json:"failed"`
	Error    string               `json:"error,omitempty"`
	Topics   []*reconciler.Result `json:"topics,omitempty"`
	reconciler.Counters
}

// Summary aggregates a batch run. Totals only include tenants that succeeded.
type Summary struct {
	RunID           string          `json:"run_id"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      time.Time       `json:"finished_at"`
	TotalTenants    int             `json:"total_tenants"`
	TotalCreated    int             `json:"total_created"`
	TotalUpdated    int             `json:"total_updated"`
	TotalReopened   int             `json:"total_reopened"`
	TotalResolved   int             `json:"total_resolved"`
	TotalSuppressed int             `json:"total_suppressed"`
	TotalFailed     int             `json:"total_failed"`
	Tenants         []TenantSummary `json:"tenants"`
}

// Runner reconciles many tenants with a bounded worker pool.
type Runner struct {
	reconciler    Reconciler
	tenants       TenantLister
	topics        TopicLister
	locker        Locker
	publisher     Publisher
	metrics       MetricsRecorder
	retry         *retry.Config
	workers       int
	tenantTimeout time.Duration
	now           func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers sets the worker pool size.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithTenantTimeout sets the per-tenant timeout.
func WithTenantTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.tenantTimeout = d
		}
	}
}

// WithLocker replaces the in-process locker, e.g. with a RedisLocker shared by
// several reconciler processes.
func WithLocker(l Locker) Option {
	return func(r *Runner) {
		if l != nil {
			r.locker = l
		}
	}
}

// WithPublisher sets where inbox change events go.
func WithPublisher(p Publisher) Option {
	return func(r *Runner) { r.publisher = p }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(r *Runner) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithRetry retries transient reconcile failures.
func WithRetry(cfg retry.Config) Option {
	return func(r *Runner) { r.retry = &cfg }
}

// WithClock overrides the clock used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New creates a Runner. topics is usually the signal source registry.
func New(rec Reconciler, tenants TenantLister, topics TopicLister, opts ...Option) *Runner {
	r := &Runner{
		reconciler:    rec,
		tenants:       tenants,
		topics:        topics,
		locker:        NewLocalLocker(),
		metrics:       &NoOpMetrics{},
		workers:       DefaultWorkers,
		tenantTimeout: DefaultTenantTimeout,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reconciles every topic of the selected tenants. Only a failure to list tenants
// fails the run; per-tenant failures are recorded in the summary.
func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	limit := inbox.ClampSignalLimit(opts.LimitPerTenant)

	var tenantIDs []string
	if opts.TenantID != "" {
		tenantIDs = []string{opts.TenantID}
	} else {
		ids, err := r.tenants.ListTenantIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list tenants: %w", err)
		}
		tenantIDs = ids
	}

	summary := &Summary{
		RunID:     uuid.NewString(),
		StartedAt: r.now().UTC(),
		Tenants:   make([]TenantSummary, len(tenantIDs)),
	}
	topics := r.topics.Topics()

	slog.Info("Starting reconciliation run",
		"run_id", summary.RunID,
		"tenants", len(tenantIDs),
		"topics", len(topics),
		"limit_per_tenant", limit,
		"workers", r.workers,
	)

	jobs := make(chan int, len(tenantIDs))
	var wg sync.WaitGroup
	workers := r.workers
	if workers > len(tenantIDs) {
		workers = len(tenantIDs)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				summary.Tenants[idx] = r.runTenant(ctx, tenantIDs[idx], topics, limit)
			}
		}()
	}
	for i := range tenantIDs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, ts := range summary.Tenants {
		summary.TotalTenants++
		if ts.Failed {
			summary.TotalFailed++
			continue
		}
		summary.TotalCreated += ts.Created
		summary.TotalUpdated += ts.Updated
		summary.TotalReopened += ts.Reopened
		summary.TotalResolved += ts.Resolved
		summary.TotalSuppressed += ts.Suppressed
	}
	summary.FinishedAt = r.now().UTC()

	r.metrics.AddCustom("tenants_reconciled", uint64(summary.TotalTenants-summary.TotalFailed))
	r.metrics.AddCustom("tenants_failed", uint64(summary.TotalFailed))

	slog.Info("Reconciliation run finished",
		"run_id", summary.RunID,
		"tenants", summary.TotalTenants,
		"failed", summary.TotalFailed,
		"created", summary.TotalCreated,
		"updated", summary.TotalUpdated,
		"reopened", summary.TotalReopened,
		"resolved", summary.TotalResolved,
		"suppressed", summary.TotalSuppressed,
		"duration", summary.FinishedAt.Sub(summary.StartedAt),
	)
	return summary, nil
}

// runTenant reconciles each topic of one tenant in turn. A failing topic fails the
// tenant, but the remaining topics still run.
func (r *Runner) runTenant(ctx context.Context, tenantID string, topics []inbox.Topic, limit int) TenantSummary {
	ts := TenantSummary{TenantID: tenantID}
	ctx, cancel := context.WithTimeout(ctx, r.tenantTimeout)
	defer cancel()

	var errs []error
	for _, topic := range topics {
		res, err := r.runTopic(ctx, tenantID, topic, limit)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", topic, err))
			continue
		}
		ts.Topics = append(ts.Topics, res)
		ts.Counters.Add(res.Counters)
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		slog.Error("Failed to reconcile tenant",
			"tenant_id", tenantID,
			"error", err,
		)
		return TenantSummary{TenantID: tenantID, Failed: true, Error: err.Error(), Topics: ts.Topics}
	}
	return ts
}

func (r *Runner) runTopic(ctx context.Context, tenantID string, topic inbox.Topic, limit int) (*reconciler.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock, ok, err := r.locker.TryLock(ctx, LockKey(tenantID, string(topic)))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, inbox.ErrLocked
	}
	defer unlock()

	var res *reconciler.Result
	op := func() error {
		var err error
		res, err = r.reconciler.Reconcile(ctx, tenantID, topic, limit)
		return err
	}
	if r.retry != nil {
		err = retry.WithRetry(ctx, *r.retry, "reconcile "+string(topic), op)
	} else {
		err = op()
	}
	if err != nil {
		return nil, err
	}

	if res.Changed() {
		r.publish(ctx, res)
	}
	return res, nil
}

// publish is best effort: the inbox rows are already written.
func (r *Runner) publish(ctx context.Context, res *reconciler.Result) {
	if r.publisher == nil {
		return
	}
	evt := events.NewInboxChanged(res.TenantID, res.Topic, events.ReasonReconciled, r.now())
	evt.Created = res.Created
	evt.Updated = res.Updated
	evt.Reopened = res.Reopened
	evt.Resolved = res.Resolved
	evt.Suppressed = res.Suppressed

	if err := r.publisher.PublishInboxChanged(ctx, evt); err != nil {
		slog.Warn("Failed to publish inbox change",
			"tenant_id", res.TenantID,
			"topic", res.Topic,
			"error", err,
		)
		r.metrics.IncrementCustom("publish_errors")
		return
	}
	r.metrics.RecordPublished()
}
