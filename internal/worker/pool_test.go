package worker

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docverify/internal/config"
)

var discard = slog.New(slog.NewJSONHandler(io.Discard, nil))

func TestPool_RunsAllJobs(t *testing.T) {
	p := NewPool(config.WorkerConfig{Concurrency: 3, QueueSize: 8}, discard)

	var count atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(context.Background(), func() {
			defer wg.Done()
			count.Add(1)
		}))
	}
	wg.Wait()
	require.NoError(t, p.Close(context.Background()))

	assert.Equal(t, int32(20), count.Load())
}

func TestPool_BoundsConcurrency(t *testing.T) {
	p := NewPool(config.WorkerConfig{Concurrency: 2, QueueSize: 10}, discard)

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(context.Background(), func() {
			defer wg.Done()
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
		}))
	}
	wg.Wait()
	require.NoError(t, p.Close(context.Background()))

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestPool_SubmitHonorsContext(t *testing.T) {
	p := NewPool(config.WorkerConfig{Concurrency: 1, QueueSize: 0}, discard)
	release := make(chan struct{})
	started := make(chan struct{})

	require.NoError(t, p.Submit(context.Background(), func() {
		close(started)
		<-release
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := p.Submit(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, p.Close(context.Background()))
}

func TestPool_SubmitAfterClose(t *testing.T) {
	p := NewPool(config.WorkerConfig{Concurrency: 1}, discard)
	require.NoError(t, p.Close(context.Background()))

	assert.ErrorIs(t, p.Submit(context.Background(), func() {}), ErrPoolClosed)
}

func TestPool_RecoversPanics(t *testing.T) {
	p := NewPool(config.WorkerConfig{Concurrency: 1, QueueSize: 2}, discard)

	done := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func() { panic("boom") }))
	require.NoError(t, p.Submit(context.Background(), func() { close(done) }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive a panicking job")
	}
	require.NoError(t, p.Close(context.Background()))
}
