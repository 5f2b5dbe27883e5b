// Package notify delivers rendered notifications over email, a message
// broker, or the application log.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Message is a rendered notification for a single recipient.
type Message struct {
	ToName  string
	ToEmail string
	Subject string
	Body    string
	// Kind is a machine-readable tag such as "ticket.status_changed".
	Kind string
	// Data is published as-is to structured channels.
	Data any
}

// Sender delivers a Message over one channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// LogSender writes notifications to the log. It is the fallback when no
// other channel is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender builds a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Name() string { return "log" }

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("notification",
		zap.String("kind", msg.Kind),
		zap.String("to", msg.ToEmail),
		zap.String("subject", msg.Subject))
	return nil
}
