package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"docverify/internal/config"
)

// Delivery results reported to the observer.
const (
	ResultSent       = "sent"
	ResultRetried    = "retried"
	ResultDeadLetter = "dead_letter"
)

// Dispatcher owns the outbound queue. Enqueue never blocks; a full queue or a
// closed dispatcher dead-letters the notification immediately.
type Dispatcher struct {
	sender      Sender
	queue       chan Notification
	workers     int
	maxAttempts int
	backoff     time.Duration
	logger      *slog.Logger
	observe     func(result string)
	sleep       func(ctx context.Context, d time.Duration) error

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithObserver registers fn to be called once per delivery result.
func WithObserver(fn func(result string)) Option {
	return func(d *Dispatcher) { d.observe = fn }
}

// NewDispatcher creates a stopped dispatcher; call Start to run workers.
func NewDispatcher(sender Sender, cfg config.NotificationConfig, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sender:      sender,
		queue:       make(chan Notification, max(cfg.QueueSize, 1)),
		workers:     max(cfg.Workers, 1),
		maxAttempts: max(cfg.MaxAttempts, 1),
		backoff:     cfg.RetryBackoff,
		logger:      logger.With("component", "notify"),
		observe:     func(string) {},
		sleep:       sleepCtx,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the workers. They exit once Close drains the queue.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for n := range d.queue {
				d.process(ctx, n)
			}
		}()
	}
}

// Enqueue hands n to the workers. It returns false when n was dead-lettered instead.
func (d *Dispatcher) Enqueue(n Notification) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.deadLetter(n, 0, fmt.Errorf("%w: dispatcher closed", ErrNotificationFailure))
		return false
	}
	select {
	case d.queue <- n:
		return true
	default:
		d.deadLetter(n, 0, fmt.Errorf("%w: queue full", ErrNotificationFailure))
		return false
	}
}

// Close stops intake and waits for queued notifications until ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

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

func (d *Dispatcher) process(ctx context.Context, n Notification) {
	if err := d.Deliver(ctx, n); err != nil {
		d.deadLetter(n, d.maxAttempts, err)
	}
}

// Deliver sends n, retrying with exponential backoff up to the configured attempts.
func (d *Dispatcher) Deliver(ctx context.Context, n Notification) error {
	wait := d.backoff
	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		err := d.sender.Send(ctx, n)
		if err == nil {
			d.observe(ResultSent)
			d.logger.Info("notification_sent", "record_id", n.RecordID, "attempt", attempt)
			return nil
		}
		lastErr = err
		if attempt == d.maxAttempts {
			break
		}
		d.observe(ResultRetried)
		d.logger.Warn("notification_retry",
			"record_id", n.RecordID,
			"attempt", attempt,
			"backoff_ms", wait.Milliseconds(),
			"error", err.Error(),
		)
		if err := d.sleep(ctx, wait); err != nil {
			lastErr = err
			break
		}
		wait *= 2
	}
	return fmt.Errorf("%w: %s: %w", ErrNotificationFailure, n.RecordID, lastErr)
}

func (d *Dispatcher) deadLetter(n Notification, attempts int, err error) {
	d.observe(ResultDeadLetter)
	d.logger.Error("notification_dead_letter",
		"record_id", n.RecordID,
		"to", MaskAddress(n.To),
		"status", string(n.Status),
		"attempts", attempts,
		"error", err.Error(),
	)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
