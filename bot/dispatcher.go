package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultWorkers     = 8
	defaultQueueSize   = 1024
	defaultTaskTimeout = 5 * time.Minute
)

type task struct {
	eventID string
	run     func(ctx context.Context)
}

// Dispatcher runs event handlers on a fixed worker pool so the webhook
// endpoint can acknowledge immediately. A full queue drops the event
// rather than blocking the HTTP handler.
type Dispatcher struct {
	queue   chan task
	timeout time.Duration

	// mu orders Submit sends against the queue close in Shutdown.
	mu     sync.Mutex
	closed bool

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewDispatcher starts workers goroutines consuming the queue.
// Non-positive arguments fall back to the defaults.
func NewDispatcher(workers, queueSize int, timeout time.Duration) *Dispatcher {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if timeout <= 0 {
		timeout = defaultTaskTimeout
	}
	d := &Dispatcher{
		queue:   make(chan task, queueSize),
		timeout: timeout,
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker(i)
	}
	return d
}

// Submit enqueues an event handler. Returns false when the queue is full
// or the dispatcher has shut down.
func (d *Dispatcher) Submit(eventID string, run func(ctx context.Context)) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		slog.Warn("dispatcher stopped, event dropped", "event_id", eventID)
		return false
	}
	select {
	case d.queue <- task{eventID: eventID, run: run}:
		return true
	default:
		slog.Warn("dispatch queue full, event dropped", "event_id", eventID)
		return false
	}
}

// Shutdown stops accepting work and waits for in-flight tasks, or until
// ctx expires.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for t := range d.queue {
		d.runTask(id, t)
	}
}

func (d *Dispatcher) runTask(workerID int, t task) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panicked", "worker", workerID, "event_id", t.eventID, "panic", r)
		}
	}()
	start := time.Now()
	t.run(ctx)
	slog.Debug("event handled", "worker", workerID, "event_id", t.eventID, "elapsed", time.Since(start))
}
