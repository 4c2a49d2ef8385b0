package sender

import (
	"context"
	"log/slog"
)

// LogSender writes notifications to the structured log. It is the default
// delivery channel until a mail or push provider is wired in.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Notify(ctx context.Context, subject, message string) error {
	s.log.InfoContext(ctx, "notification sent", "subject", subject, "message", message)
	return nil
}
