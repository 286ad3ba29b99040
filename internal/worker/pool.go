// Package worker provides a bounded-queue worker pool with per-item
// failure isolation.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gmalt/hgt/internal/ports/output"
)

// Pool lifecycle errors.
var (
	ErrPoolClosed  = errors.New("worker pool closed")
	ErrPoolStarted = errors.New("worker pool already started")
)

// State represents the pool lifecycle state.
type State int32

// Pool states, in lifecycle order.
const (
	StateIdle State = iota
	StateRunning
	StateDraining
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Handler processes one item and reports how many rows it produced.
type Handler[T any] func(ctx context.Context, item T) (rows int64, err error)

// Result reports the outcome of one processed item. One item's failure
// never affects other items; it travels to the consumer as a Result
// with Err set.
type Result[T any] struct {
	Item    T
	Rows    int64
	Elapsed time.Duration
	Err     error
}

// Options configures a pool.
type Options[T any] struct {
	QueueSize int                     // Queue capacity, default 64
	Logger    *slog.Logger            // Default slog.Default()
	Reporter  output.ProgressReporter // Default no-op
	Label     func(T) string          // Item label for progress reporting
}

// Pool runs a fixed number of workers over a bounded queue. Workers
// send every outcome to the results channel; the caller must consume
// Results until it is closed.
//
// Lifecycle: Submit items (before or after Start), Start once, Drain
// when no more items will arrive, Wait for the workers to finish.
type Pool[T any] struct {
	queue    chan T
	results  chan Result[T]
	state    atomic.Int32
	logger   *slog.Logger
	reporter output.ProgressReporter
	label    func(T) string

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New creates an idle pool.
func New[T any](opts Options[T]) *Pool[T] {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Reporter == nil {
		opts.Reporter = &output.NoOpProgress{}
	}
	if opts.Label == nil {
		opts.Label = func(item T) string { return fmt.Sprintf("%v", item) }
	}
	return &Pool[T]{
		queue:    make(chan T, opts.QueueSize),
		results:  make(chan Result[T], opts.QueueSize),
		logger:   opts.Logger,
		reporter: opts.Reporter,
		label:    opts.Label,
	}
}

// Submit enqueues an item. It blocks while the queue is full and
// returns ErrPoolClosed once the pool is draining or stopped.
func (p *Pool[T]) Submit(item T) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.queue <- item
	return nil
}

// Start launches the workers. The context stops dequeuing when
// canceled; items already claimed run to completion.
func (p *Pool[T]) Start(ctx context.Context, concurrency int, handler Handler[T]) error {
	if concurrency < 1 {
		concurrency = 1
	}
	if !p.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return ErrPoolStarted
	}

	p.logger.Debug("worker pool starting", "concurrency", concurrency)
	p.wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go p.worker(ctx, i, handler)
	}
	return nil
}

// Drain closes the queue. Workers keep pulling until the queue is
// empty; further Submit calls fail with ErrPoolClosed.
func (p *Pool[T]) Drain() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.queue)
	p.state.CompareAndSwap(int32(StateRunning), int32(StateDraining))
	p.logger.Debug("worker pool draining")
}

// Wait blocks until every worker has observed queue exhaustion, then
// closes the results channel and marks the pool stopped.
func (p *Pool[T]) Wait() {
	p.wg.Wait()
	p.state.Store(int32(StateStopped))
	close(p.results)
	p.logger.Debug("worker pool stopped")
}

// Results returns the channel carrying one Result per processed item.
// It is closed by Wait after the last worker exits.
func (p *Pool[T]) Results() <-chan Result[T] {
	return p.results
}

// State returns the current lifecycle state.
func (p *Pool[T]) State() State {
	return State(p.state.Load())
}

// QueueDepth returns the number of queued items not yet claimed.
func (p *Pool[T]) QueueDepth() int {
	return len(p.queue)
}

func (p *Pool[T]) worker(ctx context.Context, id int, handler Handler[T]) {
	defer p.wg.Done()

	for {
		// Canceled contexts win over a ready queue, so cancellation
		// reliably stops new dequeues.
		select {
		case <-ctx.Done():
			p.logger.Debug("worker canceled", "worker", id)
			return
		default:
		}

		select {
		case <-ctx.Done():
			p.logger.Debug("worker canceled", "worker", id)
			return
		case item, ok := <-p.queue:
			if !ok {
				return
			}
			name := p.label(item)
			p.reporter.ItemStarted(name)

			start := time.Now()
			rows, err := handler(ctx, item)
			elapsed := time.Since(start)

			if err != nil {
				p.reporter.ItemFailed(name)
			} else {
				p.reporter.ItemCompleted(name, rows)
			}
			p.results <- Result[T]{Item: item, Rows: rows, Elapsed: elapsed, Err: err}
		}
	}
}
