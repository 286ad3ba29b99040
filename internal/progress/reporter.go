// Package progress reports pipeline progress at a bounded rate.
package progress

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Options configures a reporter.
type Options struct {
	// Stage names the pipeline stage in every log line.
	Stage string

	// Total is the expected item count, 0 when unknown.
	Total int64

	// UpdateInterval is how often a progress line is emitted.
	// Default: 5s.
	UpdateInterval time.Duration

	// Logger receives the progress lines. Default: slog.Default().
	Logger *slog.Logger
}

// Reporter tracks item completion with atomic counters and emits one
// log line per update interval, never per item or per sample. It is
// safe for concurrent use by any number of workers.
type Reporter struct {
	opts Options

	processed atomic.Int64
	failed    atomic.Int64
	rows      atomic.Int64
	inFlight  atomic.Int32
	current   atomic.Value

	startTime time.Time
	stopCh    chan struct{}
	mu        sync.Mutex
	stopped   bool
}

// New creates a reporter. Call Start to begin periodic emission.
func New(opts Options) *Reporter {
	if opts.UpdateInterval <= 0 {
		opts.UpdateInterval = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Reporter{
		opts:   opts,
		stopCh: make(chan struct{}),
	}
}

// Start begins the periodic progress emission.
func (r *Reporter) Start() {
	r.startTime = time.Now()
	go r.updateLoop()
}

// Stop ends the periodic emission and logs a final summary line. It is
// safe to call more than once.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	close(r.stopCh)

	r.opts.Logger.Info("stage finished",
		"stage", r.opts.Stage,
		"processed", r.Processed(),
		"failed", r.Failed(),
		"rows", r.Rows(),
		"elapsed", time.Since(r.startTime).Round(time.Millisecond),
	)
}

// ItemStarted marks an item as claimed by a worker.
func (r *Reporter) ItemStarted(name string) {
	r.inFlight.Add(1)
	r.current.Store(name)
}

// ItemCompleted marks an item as done with its produced row count.
func (r *Reporter) ItemCompleted(name string, rows int64) {
	r.inFlight.Add(-1)
	r.processed.Add(1)
	r.rows.Add(rows)
	r.current.Store(name)
}

// ItemFailed marks an item as failed.
func (r *Reporter) ItemFailed(name string) {
	r.inFlight.Add(-1)
	r.processed.Add(1)
	r.failed.Add(1)
	r.current.Store(name)
}

// Processed returns the number of items handled so far, failures
// included. The count only ever grows.
func (r *Reporter) Processed() int64 {
	return r.processed.Load()
}

// Failed returns the number of failed items.
func (r *Reporter) Failed() int64 {
	return r.failed.Load()
}

// Rows returns the cumulative row count across completed items.
func (r *Reporter) Rows() int64 {
	return r.rows.Load()
}

func (r *Reporter) updateLoop() {
	ticker := time.NewTicker(r.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.emit()
		}
	}
}

func (r *Reporter) emit() {
	processed := r.Processed()

	attrs := []any{
		"stage", r.opts.Stage,
		"processed", processed,
		"failed", r.Failed(),
		"rows", r.Rows(),
		"in_flight", r.inFlight.Load(),
	}
	if r.opts.Total > 0 {
		attrs = append(attrs,
			"total", r.opts.Total,
			"percent", float64(processed)/float64(r.opts.Total)*100,
		)
	}
	if name, ok := r.current.Load().(string); ok {
		attrs = append(attrs, "last_item", name)
	}

	r.opts.Logger.Info("progress", attrs...)
}
