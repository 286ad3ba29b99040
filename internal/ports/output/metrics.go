package output

import "time"

// MetricsCollector defines the secondary port for metrics collection.
type MetricsCollector interface {
	// IncFileProcessed increments the per-stage file counter.
	IncFileProcessed(stage string, success bool)

	// ObserveFileDuration records how long one file took in a stage.
	ObserveFileDuration(stage string, duration time.Duration)

	// AddRows adds to the upserted-row counter. Inserted distinguishes
	// real writes from idempotent no-ops.
	AddRows(kind string, inserted bool, n int64)

	// SetQueueDepth sets the pending-item gauge for a stage.
	SetQueueDepth(stage string, depth int)

	// IncStorageOperations increments storage operation counter.
	IncStorageOperations(operation string, success bool)

	// ObserveStorageDuration records storage operation duration.
	ObserveStorageDuration(operation string, duration time.Duration)
}

// Row kinds reported through AddRows.
const (
	RowKindValue = "value"
	RowKindTile  = "tile"
)

// NoOpMetrics is a no-op implementation of MetricsCollector.
type NoOpMetrics struct{}

// IncFileProcessed implements MetricsCollector.
func (n *NoOpMetrics) IncFileProcessed(_ string, _ bool) {}

// ObserveFileDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveFileDuration(_ string, _ time.Duration) {}

// AddRows implements MetricsCollector.
func (n *NoOpMetrics) AddRows(_ string, _ bool, _ int64) {}

// SetQueueDepth implements MetricsCollector.
func (n *NoOpMetrics) SetQueueDepth(_ string, _ int) {}

// IncStorageOperations implements MetricsCollector.
func (n *NoOpMetrics) IncStorageOperations(_ string, _ bool) {}

// ObserveStorageDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveStorageDuration(_ string, _ time.Duration) {}
