package reconciler

import (
	"time"

	"github.com/afikmenashe/notification-inbox/pkg/metrics"
)

// metricsAdapter adapts *metrics.Collector to MetricsRecorder.
type metricsAdapter struct {
	collector *metrics.Collector
}

// NewMetricsAdapter wraps a metrics.Collector as a MetricsRecorder.
// If collector is nil, returns a no-op implementation.
func NewMetricsAdapter(collector *metrics.Collector) MetricsRecorder {
	if collector == nil {
		return &NoOpMetrics{}
	}
	return &metricsAdapter{collector: collector}
}

func (m *metricsAdapter) RecordPass(latency time.Duration) {
	m.collector.RecordPass(latency)
}

func (m *metricsAdapter) RecordCounters(c Counters) {
	m.add("notifications_created", c.Created)
	m.add("notifications_updated", c.Updated)
	m.add("notifications_reopened", c.Reopened)
	m.add("notifications_resolved", c.Resolved)
	m.add("notifications_suppressed", c.Suppressed)
	m.add("signals_read", c.SourceSignalCount)
}

func (m *metricsAdapter) RecordError() {
	m.collector.RecordError()
}

func (m *metricsAdapter) add(name string, n int) {
	if n > 0 {
		m.collector.AddCustom(name, uint64(n))
	}
}
