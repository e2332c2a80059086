// Package metrics collects process metrics and publishes periodic snapshots to Redis
// so every inbox process can be observed from one place.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// MetricsKeyPrefix is the Redis key prefix for process metrics.
	MetricsKeyPrefix = "inbox:metrics:"
	// MetricsTTL is how long a snapshot stays in Redis if not refreshed.
	MetricsTTL = 2 * time.Minute
	// DefaultReportInterval is the default interval between snapshots.
	DefaultReportInterval = 30 * time.Second
)

// Snapshot holds the metrics of one process.
type Snapshot struct {
	ServiceName string    `json:"service_name"`
	StartedAt   time.Time `json:"started_at"`
	LastUpdated time.Time `json:"last_updated"`
	Status      string    `json:"status"` // "healthy" or "unhealthy"

	// Counters since start.
	PassesCompleted uint64 `json:"passes_completed"`
	PassErrors      uint64 `json:"pass_errors"`
	RequestsServed  uint64 `json:"requests_served"`
	EventsPublished uint64 `json:"events_published"`

	PassesPerSecond  float64 `json:"passes_per_second"`
	AvgPassLatencyNs float64 `json:"avg_pass_latency_ns"`

	// Named counters such as notifications_created or rules_muted.
	Counters map[string]uint64 `json:"counters,omitempty"`
}

// Collector collects and reports metrics for a process.
type Collector struct {
	serviceName    string
	redis          *redis.Client
	startedAt      time.Time
	reportInterval time.Duration

	passesCompleted atomic.Uint64
	passErrors      atomic.Uint64
	requestsServed  atomic.Uint64
	eventsPublished atomic.Uint64

	rateMu          sync.Mutex
	lastReportTime  time.Time
	lastPassesCount uint64

	totalLatencyNs atomic.Uint64
	latencyCount   atomic.Uint64

	countersMu sync.RWMutex
	counters   map[string]*atomic.Uint64

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewCollector creates a collector. redisClient may be nil, in which case snapshots are
// only available in process.
func NewCollector(serviceName string, redisClient *redis.Client) *Collector {
	now := time.Now().UTC()
	return &Collector{
		serviceName:    serviceName,
		redis:          redisClient,
		startedAt:      now,
		reportInterval: DefaultReportInterval,
		lastReportTime: now,
		counters:       make(map[string]*atomic.Uint64),
		stopCh:         make(chan struct{}),
	}
}

// SetReportInterval sets the interval for writing snapshots to Redis.
// Non-positive intervals are ignored.
func (c *Collector) SetReportInterval(interval time.Duration) {
	if interval > 0 {
		c.reportInterval = interval
	}
}

// Start begins periodic reporting to Redis.
func (c *Collector) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.reportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				c.writeSnapshot(context.Background())
				return
			case <-c.stopCh:
				c.writeSnapshot(context.Background())
				return
			case <-ticker.C:
				c.writeSnapshot(ctx)
			}
		}
	}()
}

// Stop stops periodic reporting after a final write.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
}

// RecordPass records a completed reconciliation pass and its latency.
func (c *Collector) RecordPass(latency time.Duration) {
	c.passesCompleted.Add(1)
	c.totalLatencyNs.Add(uint64(latency.Nanoseconds()))
	c.latencyCount.Add(1)
}

// RecordError records a failed pass.
func (c *Collector) RecordError() {
	c.passErrors.Add(1)
}

// RecordRequest records a served HTTP request.
func (c *Collector) RecordRequest() {
	c.requestsServed.Add(1)
}

// RecordPublished records a published event.
func (c *Collector) RecordPublished() {
	c.eventsPublished.Add(1)
}

// IncrementCustom increments a named counter by one.
func (c *Collector) IncrementCustom(name string) {
	c.AddCustom(name, 1)
}

// AddCustom adds value to a named counter.
func (c *Collector) AddCustom(name string, value uint64) {
	if value == 0 {
		return
	}
	c.countersMu.RLock()
	counter, exists := c.counters[name]
	c.countersMu.RUnlock()

	if !exists {
		c.countersMu.Lock()
		if counter, exists = c.counters[name]; !exists {
			counter = &atomic.Uint64{}
			c.counters[name] = counter
		}
		c.countersMu.Unlock()
	}
	counter.Add(value)
}

// GetSnapshot returns the current metrics without writing to Redis.
func (c *Collector) GetSnapshot() *Snapshot {
	now := time.Now().UTC()
	passes := c.passesCompleted.Load()

	c.rateMu.Lock()
	elapsed := now.Sub(c.lastReportTime).Seconds()
	var rate float64
	if elapsed > 0 {
		rate = float64(passes-c.lastPassesCount) / elapsed
	}
	c.rateMu.Unlock()

	var avgLatencyNs float64
	if n := c.latencyCount.Load(); n > 0 {
		avgLatencyNs = float64(c.totalLatencyNs.Load()) / float64(n)
	}

	c.countersMu.RLock()
	counters := make(map[string]uint64, len(c.counters))
	for name, counter := range c.counters {
		counters[name] = counter.Load()
	}
	c.countersMu.RUnlock()

	return &Snapshot{
		ServiceName:      c.serviceName,
		StartedAt:        c.startedAt,
		LastUpdated:      now,
		Status:           "healthy",
		PassesCompleted:  passes,
		PassErrors:       c.passErrors.Load(),
		RequestsServed:   c.requestsServed.Load(),
		EventsPublished:  c.eventsPublished.Load(),
		PassesPerSecond:  rate,
		AvgPassLatencyNs: avgLatencyNs,
		Counters:         counters,
	}
}

func (c *Collector) writeSnapshot(ctx context.Context) {
	if c.redis == nil {
		return
	}

	snap := c.GetSnapshot()

	c.rateMu.Lock()
	c.lastReportTime = snap.LastUpdated
	c.lastPassesCount = snap.PassesCompleted
	c.rateMu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		slog.Error("Failed to marshal metrics", "service", c.serviceName, "error", err)
		return
	}

	key := MetricsKeyPrefix + c.serviceName
	if err := c.redis.Set(ctx, key, data, MetricsTTL).Err(); err != nil {
		slog.Error("Failed to write metrics to Redis", "service", c.serviceName, "error", err)
		return
	}

	slog.Debug("Metrics written to Redis", "service", c.serviceName, "key", key)
}

// Reader reads process snapshots from Redis.
type Reader struct {
	redis *redis.Client
}

// NewReader creates a metrics reader.
func NewReader(redisClient *redis.Client) *Reader {
	return &Reader{redis: redisClient}
}

// GetServiceMetrics retrieves the snapshot of one process. Stale snapshots are marked unhealthy.
func (r *Reader) GetServiceMetrics(ctx context.Context, serviceName string) (*Snapshot, error) {
	key := MetricsKeyPrefix + serviceName
	data, err := r.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("no metrics found for service: %s", serviceName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metrics: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
	}

	if time.Since(snap.LastUpdated) > MetricsTTL {
		snap.Status = "unhealthy"
	}

	return &snap, nil
}

// GetAllServiceMetrics retrieves the snapshots of every known process.
func (r *Reader) GetAllServiceMetrics(ctx context.Context) (map[string]*Snapshot, error) {
	result := make(map[string]*Snapshot, len(ServiceNames))
	for _, name := range ServiceNames {
		snap, err := r.GetServiceMetrics(ctx, name)
		if err != nil {
			slog.Debug("No metrics for service", "service", name, "error", err)
			continue
		}
		result[name] = snap
	}
	return result, nil
}

// Names of the processes that publish snapshots.
const (
	ServiceInbox      = "inbox-service"
	ServiceReconciler = "inbox-reconciler"
)

// ServiceNames lists the processes that publish snapshots.
var ServiceNames = []string{
	ServiceInbox,
	ServiceReconciler,
}

