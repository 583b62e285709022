// Package worker delivers queued leader changes to notification sinks.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/standings/internal/adapters/mq/queue"
	"github.com/okian/standings/pkg/logger"
	"github.com/okian/standings/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultAlertTimeout = 5 * time.Second
	poolShutdownTimeout = 10 * time.Second
)

// Event abstracts what workers read off the queue.
type Event = queue.Event

// Sink receives leader changes, e.g. a log line, a WebSocket push or a
// terminal bell.
type Sink interface {
	Name() string
	Alert(ctx context.Context, change Event) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker delivers events using the provided interfaces.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker. Each event goes to every sink once, in
// sink order; a failing sink does not stop the others.
type InMemoryWorker struct {
	queue        Queue
	sinks        []Sink
	name         string
	alertTimeout time.Duration

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, sinks []Sink, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:        queue,
		sinks:        append([]Sink(nil), sinks...),
		name:         "worker",
		alertTimeout: defaultAlertTimeout,
		shutdown:     make(chan struct{}),
		done:         make(chan struct{}),
		logger:       logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := w.deliver(ctx, event); err != nil {
				w.logger.Error(ctx, "alert delivery failed",
					logger.String("eventID", event.EventID),
					logger.Error(err))
			}
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// deliver hands one event to every sink and joins their errors.
func (w *InMemoryWorker) deliver(ctx context.Context, event Event) error { //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics
	var errs []error
	for _, sink := range w.sinks {
		start := time.Now()
		sctx, cancel := context.WithTimeout(ctx, w.alertTimeout)
		err := sink.Alert(sctx, event)
		cancel()

		if err != nil {
			metrics.RecordAlertError(sink.Name())
			metrics.RecordErrorByComponent("worker", "alert_error")
			metrics.RecordErrorLatency("worker", "alert_error", float64(time.Since(start).Milliseconds()))
			errs = append(errs, fmt.Errorf("sink %s: %w", sink.Name(), err))
			continue
		}
		metrics.RecordAlertDelivered(sink.Name())
	}
	return errors.Join(errs...)
}

// Pool manages multiple workers sharing one queue. A single worker keeps
// alerts in detection order.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, sinks []Sink, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(queue, sinks, wopts...)
	}
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Shutdown closes the queue and waits for every worker to stop.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var errs []error
	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			errs = append(errs, fmt.Errorf("worker %d: %w", i, shutdownCtx.Err()))
		}
	}
	return errors.Join(errs...)
}
