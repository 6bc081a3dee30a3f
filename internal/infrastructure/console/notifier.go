package console

import (
	"context"
	"log/slog"

	"AptScanner/internal/ports"
)

// Notifier writes the digest to the log instead of delivering it.
type Notifier struct {
	logger *slog.Logger
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier wraps a logger; nil uses slog.Default.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{logger: logger}
}

// Publish logs subject and message at info level.
func (n *Notifier) Publish(_ context.Context, subject, message string) error {
	n.logger.Info("digest", "subject", subject, "message", message)
	return nil
}
