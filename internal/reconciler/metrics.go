package reconciler

import "time"

// MetricsRecorder defines the metrics operations needed by the reconciler.
type MetricsRecorder interface {
	RecordPass(latency time.Duration)
	RecordCounters(c Counters)
	RecordError()
}

// NoOpMetrics is a null-object implementation of MetricsRecorder.
type NoOpMetrics struct{}

var _ MetricsRecorder = (*NoOpMetrics)(nil)

// RecordPass does nothing.
func (n *NoOpMetrics) RecordPass(_ time.Duration) {}

// RecordCounters does nothing.
func (n *NoOpMetrics) RecordCounters(_ Counters) {}

// RecordError does nothing.
func (n *NoOpMetrics) RecordError() {}
