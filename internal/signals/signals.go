// Package signals defines the signal source contract and the topic registry that maps
// each topic to the adapter producing its signals.
package signals

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/afikmenashe/notification-inbox/internal/inbox"
)

// Result is the output of one signal fetch.
type Result struct {
	Items    []inbox.Signal
	Currency string
}

// Source computes the current signals of one topic for a tenant.
// Adapters are read-only: they never touch inbox state.
type Source interface {
	ListSignals(ctx context.Context, tenantID string, limit int) (*Result, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, tenantID string, limit int) (*Result, error)

// ListSignals implements Source.
func (f SourceFunc) ListSignals(ctx context.Context, tenantID string, limit int) (*Result, error) {
	return f(ctx, tenantID, limit)
}

// Registry maps topics to their signal sources. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	sources map[inbox.Topic]Source
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[inbox.Topic]Source)}
}

// Register adds the source for a topic. Registering an unknown topic or a topic twice is an error.
func (r *Registry) Register(topic inbox.Topic, src Source) error {
	if !topic.IsValid() {
		return fmt.Errorf("unknown topic: %s", topic)
	}
	if src == nil {
		return fmt.Errorf("nil source for topic %s", topic)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sources[topic]; exists {
		return fmt.Errorf("source already registered for topic %s", topic)
	}
	r.sources[topic] = src
	return nil
}

// Source returns the source registered for topic.
func (r *Registry) Source(topic inbox.Topic) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[topic]
	return src, ok
}

// Topics returns the registered topics in a stable order.
func (r *Registry) Topics() []inbox.Topic {
	r.mu.RLock()
	defer r.mu.RUnlock()
	topics := make([]inbox.Topic, 0, len(r.sources))
	for t := range r.sources {
		topics = append(topics, t)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i] < topics[j] })
	return topics
}
