package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateServiceRequestRequest payload.
type CreateServiceRequestRequest struct {
	ServiceType   string          `json:"serviceType"`
	TypeOfService string          `json:"typeOfService"`
	Description   string          `json:"description"`
	Priority      domain.Priority `json:"priority"`
	DateFrom      *time.Time      `json:"dateFrom"`
	DateTo        *time.Time      `json:"dateTo"`
	Duration      string          `json:"duration"`
	Location      string          `json:"location"`
}

// UpdateServiceRequestRequest payload; omitted fields are left unchanged.
type UpdateServiceRequestRequest struct {
	Status     *domain.RequestStatus `json:"status"`
	Priority   *domain.Priority      `json:"priority"`
	AssignedTo *string               `json:"assignedTo"`
}

// DecisionRequest carries the optional approval note or rejection reason.
type DecisionRequest struct {
	Note   string `json:"note"`
	Reason string `json:"reason"`
}

// Text returns whichever field the client sent.
func (r DecisionRequest) Text() string {
	if r.Note != "" {
		return r.Note
	}
	return r.Reason
}

// ServiceRequestResponse is the full service request representation.
type ServiceRequestResponse struct {
	ID            string                 `json:"id"`
	RequestID     string                 `json:"requestId"`
	ServiceType   string                 `json:"serviceType"`
	TypeOfService string                 `json:"typeOfService"`
	Description   string                 `json:"description"`
	Priority      domain.Priority        `json:"priority"`
	DateFrom      time.Time              `json:"dateFrom"`
	DateTo        time.Time              `json:"dateTo"`
	Duration      string                 `json:"duration"`
	Location      string                 `json:"location,omitempty"`
	Status        domain.RequestStatus   `json:"status"`
	CreatedBy     UserRef                `json:"createdBy"`
	AssignedTo    *UserRef               `json:"assignedTo"`
	Comments      []CommentResponse      `json:"comments"`
	Timeline      []domain.TimelineEvent `json:"timeline"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

// NewServiceRequestResponse maps a service request to its wire form.
func NewServiceRequestResponse(req *domain.ServiceRequest) ServiceRequestResponse {
	return ServiceRequestResponse{
		ID:            req.ID,
		RequestID:     req.RequestCode,
		ServiceType:   req.ServiceType,
		TypeOfService: req.TypeOfService,
		Description:   req.Description,
		Priority:      req.Priority,
		DateFrom:      req.DateFrom,
		DateTo:        req.DateTo,
		Duration:      req.Duration,
		Location:      req.Location,
		Status:        req.Status,
		CreatedBy:     UserRef{ID: req.CreatedBy, Name: req.CreatedByName, Email: req.CreatedByEmail},
		AssignedTo:    assigneeRef(req.AssignedTo, req.AssignedToName, req.AssignedToEmail),
		Comments:      NewCommentResponses(req.Comments),
		Timeline:      nonNil(req.Timeline),
		CreatedAt:     req.CreatedAt,
		UpdatedAt:     req.UpdatedAt,
	}
}

// NewServiceRequestResponses maps a slice of service requests.
func NewServiceRequestResponses(reqs []domain.ServiceRequest) []ServiceRequestResponse {
	out := make([]ServiceRequestResponse, 0, len(reqs))
	for i := range reqs {
		out = append(out, NewServiceRequestResponse(&reqs[i]))
	}
	return out
}
