package output

// ProgressReporter defines the secondary port for progress updates.
// Implementations must be safe for concurrent use; workers call these
// methods directly.
type ProgressReporter interface {
	// ItemStarted marks an item as claimed by a worker.
	ItemStarted(name string)

	// ItemCompleted marks an item as done, with the number of rows or
	// samples it produced.
	ItemCompleted(name string, rows int64)

	// ItemFailed marks an item as failed.
	ItemFailed(name string)
}

// NoOpProgress is a no-op implementation of ProgressReporter.
type NoOpProgress struct{}

// ItemStarted implements ProgressReporter.
func (n *NoOpProgress) ItemStarted(_ string) {}

// ItemCompleted implements ProgressReporter.
func (n *NoOpProgress) ItemCompleted(_ string, _ int64) {}

// ItemFailed implements ProgressReporter.
func (n *NoOpProgress) ItemFailed(_ string) {}
