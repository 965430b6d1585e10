package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrNotConfigured is returned by senders that have no credentials. The
// queue logs it at info level instead of as a failure.
var ErrNotConfigured = errors.New("notification sender not configured")

type QueueConfig struct {
	Workers     int
	Buffer      int
	SendTimeout time.Duration
}

// Queue is an in-process Dispatcher: a bounded channel drained by a fixed
// pool of workers that hand each event to a Sender.
type Queue struct {
	mu      sync.RWMutex
	closed  bool
	events  chan Event
	sender  Sender
	cfg     QueueConfig
	logger  *slog.Logger
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

func NewQueue(sender Sender, cfg QueueConfig, logger *slog.Logger) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 100
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	return &Queue{
		events: make(chan Event, cfg.Buffer),
		sender: sender,
		cfg:    cfg,
		logger: logger,
	}
}

// Dispatch enqueues ev. It never blocks: a full or stopped queue drops the
// event and returns false.
func (q *Queue) Dispatch(ev Event) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.logger.Warn("notification dropped: queue stopped", "kind", ev.Kind, "to", ev.To)
		return false
	}
	select {
	case q.events <- ev:
		return true
	default:
		q.logger.Warn("notification dropped: queue full", "kind", ev.Kind, "to", ev.To)
		return false
	}
}

// Start launches the workers. Cancelling ctx aborts in-flight sends.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true

	ctx, q.cancel = context.WithCancel(ctx)
	for range q.cfg.Workers {
		q.wg.Add(1)
		go q.work(ctx)
	}
}

// Stop refuses new events, lets the workers drain what is already queued,
// and waits for them to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.events)
	started := q.started
	q.mu.Unlock()

	if started {
		q.wg.Wait()
		q.cancel()
	}
}

func (q *Queue) work(ctx context.Context) {
	defer q.wg.Done()
	for ev := range q.events {
		Deliver(ctx, q.sender, ev, q.cfg.SendTimeout, q.logger)
	}
}

// Deliver sends one event and reports success. Errors are logged, never
// returned.
func Deliver(ctx context.Context, sender Sender, ev Event, timeout time.Duration, logger *slog.Logger) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := sender.Send(ctx, ev)
	switch {
	case err == nil:
		logger.Info("notification sent", "kind", ev.Kind, "to", ev.To)
		return true
	case errors.Is(err, ErrNotConfigured):
		logger.Info("notification skipped: sender not configured", "kind", ev.Kind, "to", ev.To)
	default:
		logger.Error("notification failed", "kind", ev.Kind, "to", ev.To, "error", err)
	}
	return false
}
