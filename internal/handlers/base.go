// Package handlers provides HTTP handlers for the inbox API.
package handlers

// Request headers carrying the caller identity.
const (
	TenantHeader = "X-Tenant-ID"
	ActorHeader  = "X-Actor-ID"
)

// Handlers wraps dependencies for HTTP handlers.
type Handlers struct {
	inbox     InboxAPI
	rules     RuleAPI
	runner    BatchRunner
	requester ReconcileRequester
	reader    MetricsReader
	metrics   MetricsRecorder
}

// Option is a functional option for configuring Handlers.
type Option func(*Handlers)

// WithMetrics sets a custom metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(h *Handlers) {
		if m != nil {
			h.metrics = m
		}
	}
}

// WithRunner enables inline reconciliation on POST /api/v1/reconcile.
func WithRunner(r BatchRunner) Option {
	return func(h *Handlers) { h.runner = r }
}

// WithReconcileRequester enables queued reconciliation (?async=true).
func WithReconcileRequester(r ReconcileRequester) Option {
	return func(h *Handlers) { h.requester = r }
}

// WithMetricsReader enables GET /api/v1/metrics.
func WithMetricsReader(r MetricsReader) Option {
	return func(h *Handlers) { h.reader = r }
}

// NewHandlers creates a new handlers instance.
func NewHandlers(inboxAPI InboxAPI, ruleAPI RuleAPI, opts ...Option) *Handlers {
	h := &Handlers{
		inbox:   inboxAPI,
		rules:   ruleAPI,
		metrics: NoOpMetrics{}, // Default to no-op, never nil
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}
