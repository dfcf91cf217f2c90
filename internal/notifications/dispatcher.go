package notifications

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"conduit/internal/observability"
)

// Job is a unit of deferred notification work.
type Job func(ctx context.Context)

// ErrDispatcherStopped is returned by Enqueue after Stop.
var ErrDispatcherStopped = errors.New("dispatcher stopped")

// ErrQueueFull is returned by Enqueue when the queue is at capacity.
var ErrQueueFull = errors.New("dispatcher queue full")

const jobTimeout = 5 * time.Second

// Dispatcher runs notification jobs on a single background worker so request
// handlers never wait on fan-out. The queue is bounded; overflow is dropped.
type Dispatcher struct {
	mu      sync.RWMutex
	queue   chan Job
	stopped bool
	done    chan struct{}
}

// NewDispatcher starts a dispatcher whose queue holds size pending jobs.
func NewDispatcher(size int) *Dispatcher {
	if size <= 0 {
		size = 256
	}
	d := &Dispatcher{
		queue: make(chan Job, size),
		done:  make(chan struct{}),
	}
	go d.run()
	return d
}

// Enqueue schedules job without blocking.
func (d *Dispatcher) Enqueue(job Job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return ErrDispatcherStopped
	}
	select {
	case d.queue <- job:
		return nil
	default:
		observability.CountDrop("dispatcher")
		return ErrQueueFull
	}
}

// Stop refuses new jobs, drains the queue and waits for the worker to exit or
// ctx to end, whichever comes first.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for job := range d.queue {
		d.exec(job)
	}
}

func (d *Dispatcher) exec(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in notification job", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	job(ctx)
}
