package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusResolved   TicketStatus = "Resolved"
	TicketStatusClosed     TicketStatus = "Closed"
	TicketStatusRejected   TicketStatus = "Rejected"
)

// TicketStatuses lists every ticket status in display order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
	TicketStatusRejected,
}

// Valid reports whether s is a known ticket status.
func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Priority enumerates urgency for tickets and service requests.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// Priorities lists every priority in ascending urgency.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	for _, candidate := range Priorities {
		if candidate == p {
			return true
		}
	}
	return false
}

// Ticket is a hardware or software complaint filed by an employee.
type Ticket struct {
	ID          string
	TicketCode  string
	Type        IssueType
	Category    string
	Subcategory string
	Description string
	Priority    Priority
	Status      TicketStatus
	CreatedBy   string
	AssignedTo  *string
	Attachments []Attachment
	Comments    []Comment
	Timeline    []TimelineEvent
	ResolvedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Populated from users on read.
	CreatedByName   string
	CreatedByEmail  string
	AssignedToName  *string
	AssignedToEmail *string
}

// IsAssignedTo reports whether userID is the current assignee.
func (t *Ticket) IsAssignedTo(userID string) bool {
	return t.AssignedTo != nil && *t.AssignedTo == userID
}

// Stats aggregates record counts.
type Stats struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"byStatus"`
	ByPriority map[string]int `json:"byPriority"`
}

// NewStats returns Stats with every known key present.
func NewStats(statuses []string) *Stats {
	stats := &Stats{
		ByStatus:   make(map[string]int, len(statuses)),
		ByPriority: make(map[string]int, len(Priorities)),
	}
	for _, status := range statuses {
		stats.ByStatus[status] = 0
	}
	for _, priority := range Priorities {
		stats.ByPriority[string(priority)] = 0
	}
	return stats
}
