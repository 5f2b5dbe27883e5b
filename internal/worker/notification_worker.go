package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/service"
)

// NotificationWorker owns the dispatcher that delivers notifications in the
// background.
type NotificationWorker struct {
	notifications *service.NotificationService
	dispatcher    events.Dispatcher
	logger        *zap.Logger
}

// NewNotificationWorker builds a worker around the dispatcher.
func NewNotificationWorker(notifications *service.NotificationService, dispatcher events.Dispatcher, logger *zap.Logger) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{notifications: notifications, dispatcher: dispatcher, logger: logger}
}

// Start registers notification handlers.
func (w *NotificationWorker) Start() {
	if w.notifications == nil {
		return
	}
	w.notifications.RegisterHandlers()
	w.logger.Info("notification worker started")
}

// Shutdown stops accepting events and waits for in-flight deliveries until
// ctx expires.
func (w *NotificationWorker) Shutdown(ctx context.Context) error {
	if w.dispatcher == nil {
		return nil
	}
	if err := w.dispatcher.Close(ctx); err != nil {
		w.logger.Warn("notification drain incomplete", zap.Error(err))
		return err
	}
	w.logger.Info("notification worker stopped")
	return nil
}
