package noop

import (
	"context"
	"log/slog"

	"docverify/internal/notify"
)

type noopSender struct {
	logger *slog.Logger
}

// NewNoopSender creates a notify.Sender that only logs what would have been sent.
func NewNoopSender(logger *slog.Logger) notify.Sender {
	return &noopSender{logger: logger}
}

func (s *noopSender) Send(_ context.Context, n notify.Notification) error {
	s.logger.Info("notification_noop",
		"record_id", n.RecordID,
		"to", notify.MaskAddress(n.To),
		"subject", notify.Subject(n),
	)
	return nil
}
