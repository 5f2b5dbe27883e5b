package domain

import "time"

// RequestStatus enumerates lifecycle states for service requests.
type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "Pending"
	RequestStatusApproved   RequestStatus = "Approved"
	RequestStatusInProgress RequestStatus = "In Progress"
	RequestStatusCompleted  RequestStatus = "Completed"
	RequestStatusRejected   RequestStatus = "Rejected"
)

// RequestStatuses lists every service request status in display order.
var RequestStatuses = []RequestStatus{
	RequestStatusPending,
	RequestStatusApproved,
	RequestStatusInProgress,
	RequestStatusCompleted,
	RequestStatusRejected,
}

// Valid reports whether s is a known service request status.
func (s RequestStatus) Valid() bool {
	for _, candidate := range RequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ServiceRequest asks for scheduled support such as an event setup or
// equipment loan. Unlike tickets it goes through an approval step.
type ServiceRequest struct {
	ID            string
	RequestCode   string
	ServiceType   string
	TypeOfService string
	Description   string
	Priority      Priority
	DateFrom      time.Time
	DateTo        time.Time
	Duration      string
	Location      string
	Status        RequestStatus
	CreatedBy     string
	AssignedTo    *string
	Comments      []Comment
	Timeline      []TimelineEvent
	CreatedAt     time.Time
	UpdatedAt     time.Time

	CreatedByName   string
	CreatedByEmail  string
	AssignedToName  *string
	AssignedToEmail *string
}

// IsAssignedTo reports whether userID is the current assignee.
func (r *ServiceRequest) IsAssignedTo(userID string) bool {
	return r.AssignedTo != nil && *r.AssignedTo == userID
}
