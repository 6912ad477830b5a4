package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/glebk/pizza-bot/internal/conversation"
	"github.com/glebk/pizza-bot/internal/metrics"
)

// QueueSize is the number of events a worker buffers
const QueueSize = 64

// ErrQueueFull is returned by Submit when the worker of the user is backed up
var ErrQueueFull = errors.New("worker queue is full")

// Handler consumes conversation events
type Handler interface {
	Handle(ctx context.Context, ev conversation.Event) error
}

// Dispatcher runs events on a fixed set of workers.
// Events of one user always land on the same worker, so they are handled one at
// a time in arrival order while different users proceed in parallel.
type Dispatcher struct {
	handler Handler
	shards  []chan conversation.Event
	backoff time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger

	wg sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with workers shards.
// After a panic the affected worker pauses for backoff before taking the next event.
func NewDispatcher(handler Handler, workers int, backoff time.Duration, m *metrics.Metrics, logger *slog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	shards := make([]chan conversation.Event, workers)
	for i := range shards {
		shards[i] = make(chan conversation.Event, QueueSize)
	}
	return &Dispatcher{
		handler: handler,
		shards:  shards,
		backoff: backoff,
		metrics: m,
		logger:  logger.With("component", "dispatcher"),
	}
}

// Start launches the workers. They exit once Close is called and their queue drains.
// Events still queued when ctx is cancelled are handled to completion; only the
// backoff pause is cut short.
func (d *Dispatcher) Start(ctx context.Context) {
	handleCtx := context.WithoutCancel(ctx)
	for i, shard := range d.shards {
		d.wg.Add(1)
		go func(id int, events <-chan conversation.Event) {
			defer d.wg.Done()
			for ev := range events {
				d.process(handleCtx, ctx.Done(), id, ev)
			}
		}(i, shard)
	}
}

// Submit queues ev on the worker owning its user.
// It never blocks: when that queue is full ev is dropped with ErrQueueFull,
// so one slow user cannot stall intake for the others.
func (d *Dispatcher) Submit(ctx context.Context, ev conversation.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case d.shards[d.shardOf(ev.UserID)] <- ev:
		return nil
	default:
		if d.metrics != nil {
			d.metrics.EventsDropped.WithLabelValues(ev.Kind.String()).Inc()
		}
		return ErrQueueFull
	}
}

// Close stops accepting events and waits for the workers to finish
func (d *Dispatcher) Close() {
	for _, shard := range d.shards {
		close(shard)
	}
	d.wg.Wait()
}

func (d *Dispatcher) shardOf(userID int64) int {
	return int(uint64(userID) % uint64(len(d.shards)))
}

func (d *Dispatcher) process(ctx context.Context, stop <-chan struct{}, worker int, ev conversation.Event) {
	kind := ev.Kind.String()
	defer func() {
		if r := recover(); r != nil {
			if d.metrics != nil {
				d.metrics.Panics.Inc()
			}
			d.logger.Error("⚠ event handling panicked",
				"worker", worker,
				"user_id", ev.UserID,
				"kind", kind,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			d.pause(stop)
		}
	}()

	if d.metrics != nil {
		d.metrics.Events.WithLabelValues(kind).Inc()
	}
	if err := d.handler.Handle(ctx, ev); err != nil {
		if d.metrics != nil {
			d.metrics.EventFailures.WithLabelValues(kind).Inc()
		}
		d.logger.Debug("event handling failed", "worker", worker, "user_id", ev.UserID, "kind", kind, "error", err)
	}
}

func (d *Dispatcher) pause(stop <-chan struct{}) {
	timer := time.NewTimer(d.backoff)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-stop:
	}
}
