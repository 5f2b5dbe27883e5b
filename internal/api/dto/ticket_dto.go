package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Type        domain.IssueType    `json:"type"`
	Category    string              `json:"category"`
	Subcategory string              `json:"subcategory"`
	Description string              `json:"description"`
	Priority    domain.Priority     `json:"priority"`
	Attachments []domain.Attachment `json:"attachments"`
}

// UpdateTicketRequest payload; omitted fields are left unchanged.
type UpdateTicketRequest struct {
	Status     *domain.TicketStatus `json:"status"`
	Priority   *domain.Priority     `json:"priority"`
	AssignedTo *string              `json:"assignedTo"`
}

// AssignRequest payload for ticket and service request assignment.
type AssignRequest struct {
	AgentID    string `json:"agentId"`
	AssignedTo string `json:"assignedTo"`
}

// Target returns whichever agent field the client sent.
func (r AssignRequest) Target() string {
	if r.AgentID != "" {
		return r.AgentID
	}
	return r.AssignedTo
}

// CommentRequest payload.
type CommentRequest struct {
	Text        string              `json:"text"`
	Attachments []domain.Attachment `json:"attachments"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID          string                 `json:"id"`
	TicketID    string                 `json:"ticketId"`
	Type        domain.IssueType       `json:"type"`
	Category    string                 `json:"category"`
	Subcategory string                 `json:"subcategory"`
	Description string                 `json:"description"`
	Priority    domain.Priority        `json:"priority"`
	Status      domain.TicketStatus    `json:"status"`
	CreatedBy   UserRef                `json:"createdBy"`
	AssignedTo  *UserRef               `json:"assignedTo"`
	Attachments []domain.Attachment    `json:"attachments"`
	Comments    []CommentResponse      `json:"comments"`
	Timeline    []domain.TimelineEvent `json:"timeline"`
	ResolvedAt  *time.Time             `json:"resolvedAt"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

// CommentResponse represents an embedded comment.
type CommentResponse struct {
	ID          string              `json:"id"`
	Author      UserRef             `json:"author"`
	Text        string              `json:"text"`
	Attachments []domain.Attachment `json:"attachments,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
}

// NewTicketResponse maps a ticket to its wire form.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          ticket.ID,
		TicketID:    ticket.TicketCode,
		Type:        ticket.Type,
		Category:    ticket.Category,
		Subcategory: ticket.Subcategory,
		Description: ticket.Description,
		Priority:    ticket.Priority,
		Status:      ticket.Status,
		CreatedBy:   UserRef{ID: ticket.CreatedBy, Name: ticket.CreatedByName, Email: ticket.CreatedByEmail},
		AssignedTo:  assigneeRef(ticket.AssignedTo, ticket.AssignedToName, ticket.AssignedToEmail),
		Attachments: nonNil(ticket.Attachments),
		Comments:    NewCommentResponses(ticket.Comments),
		Timeline:    nonNil(ticket.Timeline),
		ResolvedAt:  ticket.ResolvedAt,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
}

// NewTicketResponses maps a slice of tickets.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i]))
	}
	return out
}

// NewCommentResponses maps embedded comments.
func NewCommentResponses(comments []domain.Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(comments))
	for _, comment := range comments {
		out = append(out, CommentResponse{
			ID:          comment.ID,
			Author:      UserRef{ID: comment.Author, Name: comment.AuthorName},
			Text:        comment.Text,
			Attachments: comment.Attachments,
			Timestamp:   comment.Timestamp,
		})
	}
	return out
}

func assigneeRef(id, name, email *string) *UserRef {
	if id == nil {
		return nil
	}
	ref := &UserRef{ID: *id}
	if name != nil {
		ref.Name = *name
	}
	if email != nil {
		ref.Email = *email
	}
	return ref
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
