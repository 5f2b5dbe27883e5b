package domain

import "time"

// TimelineTimeLayout renders timeline timestamps in the configured zone.
const TimelineTimeLayout = "2006-01-02 15:04:05 MST"

// TimelineEventType tags an audit entry.
type TimelineEventType string

const (
	TimelineCreated       TimelineEventType = "created"
	TimelineAssigned      TimelineEventType = "assigned"
	TimelineReassigned    TimelineEventType = "reassigned"
	TimelineStatusChanged TimelineEventType = "status_changed"
	TimelineCommented     TimelineEventType = "commented"
	TimelineResolved      TimelineEventType = "resolved"
	TimelineClosed        TimelineEventType = "closed"
)

// TimelineEvent is an append-only audit entry embedded in a ticket or service
// request. PerformedByName is a snapshot taken when the action happened.
type TimelineEvent struct {
	Event           TimelineEventType `json:"event"`
	PerformedBy     string            `json:"performedBy"`
	PerformedByName string            `json:"performedByName"`
	Timestamp       string            `json:"timestamp"`
	Details         string            `json:"details"`
	OldValue        string            `json:"oldValue,omitempty"`
	NewValue        string            `json:"newValue,omitempty"`
}

// Attachment is an opaque reference to an uploaded file.
type Attachment struct {
	FileName  string `json:"fileName"`
	URL       string `json:"url"`
	MimeType  string `json:"mimeType,omitempty"`
	SizeBytes int64  `json:"sizeBytes,omitempty"`
}

// Comment is an entry in a ticket or service request thread.
type Comment struct {
	ID          string       `json:"id"`
	Author      string       `json:"author"`
	AuthorName  string       `json:"authorName"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}
