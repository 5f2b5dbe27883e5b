package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/notify"
	"github.com/spec-kit/helpdesk/internal/observability"
)

// NotificationService turns domain events into messages and fans them out
// to every configured sender.
type NotificationService struct {
	dispatcher events.Dispatcher
	senders    []notify.Sender
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, senders []notify.Sender, logger *zap.Logger, metrics *observability.Metrics) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		senders:    senders,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventCreated, n.handle)
	n.dispatcher.Subscribe(events.EventAssigned, n.handle)
	n.dispatcher.Subscribe(events.EventStatusChanged, n.handle)
	n.dispatcher.Subscribe(events.EventPasswordReset, n.handle)
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	msg, ok := render(event)
	if !ok {
		n.logger.Debug("event has no notification",
			zap.String("event_type", string(event.Type)),
			zap.String("entity", string(event.Entity)))
		return nil
	}
	if strings.TrimSpace(msg.ToEmail) == "" {
		n.logger.Debug("notification skipped, recipient has no email",
			zap.String("event_type", string(event.Type)),
			zap.String("user_id", event.Recipient.UserID))
		return nil
	}

	var errs []error
	for _, sender := range n.senders {
		err := sender.Send(ctx, msg)
		n.metrics.RecordNotification(sender.Name(), err)
		if err != nil {
			n.logger.Error("notification delivery failed",
				zap.String("channel", sender.Name()),
				zap.String("kind", msg.Kind),
				zap.String("entity_id", event.EntityID),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func entityLabel(kind events.EntityKind) string {
	switch kind {
	case events.EntityTicket:
		return "Ticket"
	case events.EntityServiceRequest:
		return "Service request"
	default:
		return "Record"
	}
}

// render builds the message for an event. The second result is false for
// events that do not notify anyone.
func render(event events.Event) (notify.Message, bool) {
	msg := notify.Message{
		ToName:  event.Recipient.Name,
		ToEmail: event.Recipient.Email,
		Kind:    string(event.Entity) + "." + string(event.Type),
		Data:    event,
	}
	label := entityLabel(event.Entity)
	greeting := "Hello"
	if event.Recipient.Name != "" {
		greeting += " " + event.Recipient.Name
	}

	switch payload := event.Payload.(type) {
	case events.CreatedPayload:
		msg.Subject = fmt.Sprintf("%s %s received", label, event.EntityCode)
		msg.Body = fmt.Sprintf("%s,\n\nWe received your %s %s (%s, priority %s). Current status: %s.\n",
			greeting, strings.ToLower(label), event.EntityCode, payload.Summary, payload.Priority, payload.Status)
	case events.AssignedPayload:
		msg.Subject = fmt.Sprintf("%s %s assigned to you", label, event.EntityCode)
		msg.Body = fmt.Sprintf("%s,\n\n%s %s has been assigned to you.\n", greeting, label, event.EntityCode)
	case events.StatusChangedPayload:
		msg.Subject = fmt.Sprintf("%s %s is now %s", label, event.EntityCode, payload.NewStatus)
		msg.Body = fmt.Sprintf("%s,\n\nThe status of %s %s changed from %s to %s.\n",
			greeting, strings.ToLower(label), event.EntityCode, payload.OldStatus, payload.NewStatus)
		if payload.Note != "" {
			msg.Body += "\nNote: " + payload.Note + "\n"
		}
	case events.PasswordResetPayload:
		msg.Kind = "user.password_reset"
		msg.Subject = "Password reset requested"
		msg.Body = fmt.Sprintf("%s,\n\nUse this token to reset your password: %s\nIt expires at %s.\n",
			greeting, payload.Token, payload.ExpiresAt.Format("2006-01-02 15:04 MST"))
		// the broker never sees the token
		msg.Data = struct {
			UserID    string `json:"userId"`
			ExpiresAt string `json:"expiresAt"`
		}{UserID: event.Recipient.UserID, ExpiresAt: payload.ExpiresAt.Format("2006-01-02T15:04:05Z07:00")}
	default:
		return notify.Message{}, false
	}
	return msg, true
}
