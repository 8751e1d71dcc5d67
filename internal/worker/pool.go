// Package worker runs pipeline jobs on a fixed number of goroutines.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"docverify/internal/config"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("worker pool closed")

// Job is a unit of work. It receives no context; jobs carry their own.
type Job func()

// Pool is a bounded worker pool: Concurrency goroutines drain a queue of QueueSize jobs.
type Pool struct {
	jobs   chan Job
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewPool starts the workers immediately.
func NewPool(cfg config.WorkerConfig, logger *slog.Logger) *Pool {
	p := &Pool{
		jobs:   make(chan Job, max(cfg.QueueSize, 0)),
		logger: logger.With("component", "worker"),
	}
	n := max(cfg.Concurrency, 1)
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
	return p
}

func (p *Pool) run(id int) {
	defer p.wg.Done()
	for job := range p.jobs {
		p.safely(id, job)
	}
}

func (p *Pool) safely(id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("job_panic", "worker", id, "panic", fmt.Sprint(r))
		}
	}()
	job()
}

// Submit blocks until the job is queued or ctx is done.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops intake and waits for queued jobs to finish or ctx to end.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
