package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docverify/internal/config"
	"docverify/internal/model"
)

func testConfig() config.NotificationConfig {
	return config.NotificationConfig{QueueSize: 4, Workers: 1, MaxAttempts: 3, RetryBackoff: time.Millisecond}
}

type results struct {
	mu  sync.Mutex
	got []string
}

func (r *results) observe(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, result)
}

func (r *results) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.got...)
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestDispatcher_DeliversQueuedNotification(t *testing.T) {
	var sent atomic.Int32
	sender := SenderFunc(func(_ context.Context, n Notification) error {
		assert.Equal(t, "rec-1", n.RecordID)
		sent.Add(1)
		return nil
	})

	r := &results{}
	d := NewDispatcher(sender, testConfig(), slog.New(slog.NewJSONHandler(io.Discard, nil)), WithObserver(r.observe))
	d.Start(context.Background())

	assert.True(t, d.Enqueue(Notification{RecordID: "rec-1", To: "a@example.com"}))
	require.NoError(t, d.Close(context.Background()))

	assert.Equal(t, int32(1), sent.Load())
	assert.Equal(t, []string{ResultSent}, r.list())
}

func TestDispatcher_RetriesWithExponentialBackoff(t *testing.T) {
	var calls int
	sender := SenderFunc(func(context.Context, Notification) error {
		calls++
		if calls < 3 {
			return errors.New("throttled")
		}
		return nil
	})

	var waits []time.Duration
	r := &results{}
	d := NewDispatcher(sender, config.NotificationConfig{MaxAttempts: 3, RetryBackoff: 10 * time.Millisecond},
		slog.New(slog.NewJSONHandler(io.Discard, nil)), WithObserver(r.observe))
	d.sleep = func(_ context.Context, w time.Duration) error {
		waits = append(waits, w)
		return nil
	}

	require.NoError(t, d.Deliver(context.Background(), Notification{RecordID: "rec-2"}))
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, waits)
	assert.Equal(t, []string{ResultRetried, ResultRetried, ResultSent}, r.list())
}

func TestDispatcher_DeadLettersAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	sender := SenderFunc(func(context.Context, Notification) error {
		calls.Add(1)
		return errors.New("smtp down")
	})

	var buf bytes.Buffer
	r := &results{}
	d := NewDispatcher(sender, testConfig(), slog.New(slog.NewJSONHandler(&buf, nil)), WithObserver(r.observe))
	d.sleep = noSleep

	err := d.Deliver(context.Background(), Notification{RecordID: "rec-3"})
	assert.ErrorIs(t, err, ErrNotificationFailure)
	assert.ErrorContains(t, err, "smtp down")
	assert.Equal(t, int32(3), calls.Load())

	d.Start(context.Background())
	d.Enqueue(Notification{RecordID: "rec-3", To: "b@example.com"})
	require.NoError(t, d.Close(context.Background()))

	assert.Contains(t, buf.String(), `"msg":"notification_dead_letter"`)
	assert.Contains(t, buf.String(), `"record_id":"rec-3"`)
	assert.Contains(t, buf.String(), `"to":"b***@example.com"`)
	assert.NotContains(t, buf.String(), "b@example.com")
	assert.Equal(t, ResultDeadLetter, r.list()[len(r.list())-1])
}

func TestDispatcher_FullQueueDeadLettersImmediately(t *testing.T) {
	block := make(chan struct{})
	sender := SenderFunc(func(context.Context, Notification) error {
		<-block
		return nil
	})

	r := &results{}
	d := NewDispatcher(sender, config.NotificationConfig{QueueSize: 1, Workers: 1, MaxAttempts: 1},
		slog.New(slog.NewJSONHandler(io.Discard, nil)), WithObserver(r.observe))

	// Without workers the single slot fills up at once.
	assert.True(t, d.Enqueue(Notification{RecordID: "first"}))
	assert.False(t, d.Enqueue(Notification{RecordID: "second"}))
	assert.Equal(t, []string{ResultDeadLetter}, r.list())

	d.Start(context.Background())
	close(block)
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcher_EnqueueAfterClose(t *testing.T) {
	d := NewDispatcher(SenderFunc(func(context.Context, Notification) error { return nil }),
		testConfig(), slog.New(slog.NewJSONHandler(io.Discard, nil)))
	d.Start(context.Background())
	require.NoError(t, d.Close(context.Background()))
	require.NoError(t, d.Close(context.Background()))

	assert.False(t, d.Enqueue(Notification{RecordID: "late"}))
}

func TestDispatcher_CanceledContextStopsRetries(t *testing.T) {
	var calls int
	sender := SenderFunc(func(context.Context, Notification) error {
		calls++
		return errors.New("unavailable")
	})
	d := NewDispatcher(sender, config.NotificationConfig{MaxAttempts: 5, RetryBackoff: time.Hour},
		slog.New(slog.NewJSONHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Deliver(ctx, Notification{RecordID: "rec-4"})
	assert.ErrorIs(t, err, ErrNotificationFailure)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestMaskAddress(t *testing.T) {
	tests := map[string]string{
		"jane.roe@example.com": "j***@example.com",
		"a@b.io":               "a***@b.io",
		"not-an-address":       "***",
		"@example.com":         "***",
		"":                     "***",
	}
	for in, want := range tests {
		assert.Equal(t, want, MaskAddress(in), in)
	}
}

func TestFromRecordAndBodies(t *testing.T) {
	rec := &model.VerificationRecord{
		ID:              "rec-5",
		Status:          model.StatusVerified,
		DocumentType:    model.DocumentTypeDrivingLicense,
		ConfidenceScore: 0.91,
		ExtractedFields: model.ExtractedFields{model.FieldDocumentNumber: {Value: "D<99>", Confidence: 1}},
		Checks: []model.RuleResult{
			{Rule: "License Number Format", Status: model.RulePassed, Details: "ok"},
			{Rule: "License Active Status", Status: model.RuleFailed},
		},
	}

	n := FromRecord("c@example.com", rec)
	assert.Equal(t, "D<99>", n.DocumentNumber)
	assert.Equal(t, "Document Verification Update: verified", Subject(n))

	text := TextBody(n)
	assert.Contains(t, text, "DRIVING LICENSE")
	assert.Contains(t, text, "Confidence Score: 0.9100 / 1.0")
	assert.Contains(t, text, "- License Active Status: FAILED (No details)")

	body := HTMLBody(n)
	assert.Contains(t, body, "D&lt;99&gt;")
	assert.Contains(t, body, `<li style="color: green"><strong>License Number Format</strong>`)
	assert.Contains(t, body, `<li style="color: red">`)

	empty := HTMLBody(Notification{Status: model.StatusRejected})
	assert.Contains(t, empty, "No verification rules available")
	assert.Contains(t, empty, "<strong>DOCUMENT</strong>")
	assert.Contains(t, empty, "N/A")
}
