package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCreated       EventType = "created"
	EventAssigned      EventType = "assigned"
	EventStatusChanged EventType = "status_changed"
	EventPasswordReset EventType = "password_reset"
)

// EntityKind names the record an event is about.
type EntityKind string

const (
	EntityTicket         EntityKind = "ticket"
	EntityServiceRequest EntityKind = "service_request"
	EntityUser           EntityKind = "user"
)

// Recipient is a snapshot of the user to notify.
type Recipient struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID         string     `json:"id"`
	Type       EventType  `json:"type"`
	Entity     EntityKind `json:"entity"`
	EntityID   string     `json:"entityId"`
	EntityCode string     `json:"entityCode,omitempty"`
	ActorID    string     `json:"actorId"`
	Recipient  Recipient  `json:"recipient"`
	Timestamp  time.Time  `json:"timestamp"`
	Payload    any        `json:"payload,omitempty"`
}

// CreatedPayload accompanies EventCreated.
type CreatedPayload struct {
	Summary  string `json:"summary"`
	Priority string `json:"priority"`
	Status   string `json:"status"`
}

// AssignedPayload accompanies EventAssigned.
type AssignedPayload struct {
	AssigneeID       string  `json:"assigneeId"`
	PreviousAssignee *string `json:"previousAssignee,omitempty"`
}

// StatusChangedPayload accompanies EventStatusChanged.
type StatusChangedPayload struct {
	OldStatus string `json:"oldStatus"`
	NewStatus string `json:"newStatus"`
	Note      string `json:"note,omitempty"`
}

// PasswordResetPayload accompanies EventPasswordReset.
type PasswordResetPayload struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
