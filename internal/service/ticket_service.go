package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const ticketCodePrefix = "TKT"

// TicketService coordinates ticket workflows.
type TicketService struct {
	lifecycle
	tickets     repository.TicketRepository
	sequence    repository.SequenceGenerator
	assignments *AssignmentService
	dispatcher  events.Dispatcher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	Sequence    repository.SequenceGenerator
	Assignments *AssignmentService
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	Options     LifecycleOptions
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Type        domain.IssueType
	Category    string
	Subcategory string
	Description string
	Priority    domain.Priority
	Attachments []domain.Attachment
}

// TicketUpdateInput is a partial update; nil fields are left alone.
type TicketUpdateInput struct {
	Status     *domain.TicketStatus
	Priority   *domain.Priority
	AssignedTo *string
}

// TicketListInput describes listing filters.
type TicketListInput struct {
	Scope       ListScope
	Statuses    []domain.TicketStatus
	Priorities  []domain.Priority
	Type        *domain.IssueType
	Search      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	// AssignedTo and Unassigned only apply to the "all" scope.
	AssignedTo *string
	Unassigned bool
	SortBy     string
	SortOrder  string
	PageRequest
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		lifecycle:   newLifecycle(deps.Options, deps.Logger, deps.Metrics),
		tickets:     deps.TicketRepo,
		sequence:    deps.Sequence,
		assignments: deps.Assignments,
		dispatcher:  deps.Dispatcher,
	}
}

// CreateTicket files a new ticket for the actor.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}

	input.Category = strings.TrimSpace(input.Category)
	input.Subcategory = strings.TrimSpace(input.Subcategory)
	input.Description = strings.TrimSpace(input.Description)
	if input.Priority == "" {
		input.Priority = domain.PriorityMedium
	}

	errs := fieldErrors{}
	if !input.Type.Valid() {
		errs.add("type", "must be Hardware or Software")
	}
	errs.required("category", input.Category)
	errs.required("description", input.Description)
	if len([]rune(input.Description)) < minDescriptionLength {
		errs.add("description", "must be at least 10 characters")
	}
	if !input.Priority.Valid() {
		errs.add("priority", "must be one of Low, Medium, High, Critical")
	}
	for _, att := range input.Attachments {
		if strings.TrimSpace(att.FileName) == "" || strings.TrimSpace(att.URL) == "" {
			errs.add("attachments", "each attachment needs fileName and url")
		}
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	n, err := s.sequence.Next(ctx, repository.SequenceTicket)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	ticket := &domain.Ticket{
		TicketCode:  repository.FormatCode(ticketCodePrefix, n),
		Type:        input.Type,
		Category:    input.Category,
		Subcategory: input.Subcategory,
		Description: input.Description,
		Priority:    input.Priority,
		Status:      domain.TicketStatusOpen,
		CreatedBy:   actor.ID,
		Attachments: input.Attachments,
		Comments:    []domain.Comment{},
		Timeline: []domain.TimelineEvent{
			s.event(actor, domain.TimelineCreated, "Ticket created", "", string(input.Priority)),
		},
	}
	if ticket.Attachments == nil {
		ticket.Attachments = []domain.Attachment{}
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, mapRepoError(err, "ticket", ticket.TicketCode)
	}
	ticket.CreatedByName = actor.Name
	ticket.CreatedByEmail = actor.Email

	s.metrics.RecordLifecycle(string(events.EntityTicket), "create")
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:       events.EventCreated,
		Entity:     events.EntityTicket,
		EntityID:   ticket.ID,
		EntityCode: ticket.TicketCode,
		ActorID:    actor.ID,
		Recipient:  recipientOf(actor),
		Payload: events.CreatedPayload{
			Summary:  ticket.Category,
			Priority: string(ticket.Priority),
			Status:   string(ticket.Status),
		},
	})
	return ticket, nil
}

// GetTicket returns a ticket the actor may see.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.User, id string) (*domain.Ticket, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	return s.load(ctx, actor, id)
}

func (s *TicketService) load(ctx context.Context, actor *domain.User, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "ticket", id)
	}
	if err := authorizeRecord(actor, "ticket", ticket.CreatedBy, ticket.AssignedTo); err != nil {
		return nil, err
	}
	return ticket, nil
}

// ListTickets returns a page of tickets within the requested scope.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.User, input TicketListInput) (Page[domain.Ticket], error) {
	if err := requireActive(actor); err != nil {
		return Page[domain.Ticket]{}, err
	}

	errs := fieldErrors{}
	for _, status := range input.Statuses {
		if !status.Valid() {
			errs.add("status", "unknown status "+string(status))
		}
	}
	for _, priority := range input.Priorities {
		if !priority.Valid() {
			errs.add("priority", "unknown priority "+string(priority))
		}
	}
	if input.Type != nil && !input.Type.Valid() {
		errs.add("type", "must be Hardware or Software")
	}
	if err := errs.err(); err != nil {
		return Page[domain.Ticket]{}, err
	}

	page, limit, window := input.PageRequest.normalize()
	filter := repository.TicketFilter{
		Statuses:    input.Statuses,
		Priorities:  input.Priorities,
		Type:        input.Type,
		SearchTerm:  input.Search,
		CreatedFrom: input.CreatedFrom,
		CreatedTo:   input.CreatedTo,
		SortBy:      input.SortBy,
		SortDesc:    sortDescending(input.SortOrder),
		Page:        window,
	}

	switch input.Scope {
	case ScopeMine, "":
		filter.CreatedBy = &actor.ID
	case ScopeAssigned:
		if err := requireRole(actor, domain.RoleAgent); err != nil {
			return Page[domain.Ticket]{}, err
		}
		filter.AssignedTo = &actor.ID
	case ScopeAll:
		if err := requireRole(actor, domain.RoleAdmin); err != nil {
			return Page[domain.Ticket]{}, err
		}
		filter.AssignedTo = input.AssignedTo
		filter.Unassigned = input.Unassigned
	default:
		return Page[domain.Ticket]{}, apperrors.NewValidationError("validation failed", map[string]any{"scope": "unknown scope"})
	}

	tickets, total, err := s.tickets.List(ctx, filter)
	if err != nil {
		return Page[domain.Ticket]{}, apperrors.MapError(err)
	}
	return newPage(tickets, page, limit, total), nil
}

// UpdateTicket applies status, priority and assignee changes.
func (s *TicketService) UpdateTicket(ctx context.Context, actor *domain.User, id string, input TicketUpdateInput) (*domain.Ticket, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	errs := fieldErrors{}
	if input.Status != nil && !input.Status.Valid() {
		errs.add("status", "unknown status")
	}
	if input.Priority != nil && !input.Priority.Valid() {
		errs.add("priority", "unknown priority")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	ticket, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if input.AssignedTo != nil {
		if err := s.assignments.CheckAssignee(ctx, actor, *input.AssignedTo); err != nil {
			return nil, err
		}
	}

	changes := repository.TicketChanges{}
	statusChanged := false
	oldStatus := ticket.Status
	if input.Priority != nil && *input.Priority != ticket.Priority {
		changes.Priority = input.Priority
	}
	if input.Status != nil && *input.Status != ticket.Status {
		next := *input.Status
		if err := s.checkTransition("ticket", ticket.ID, string(oldStatus), string(next),
			domain.IsAdvisedTicketTransition(oldStatus, next)); err != nil {
			return nil, err
		}
		changes.Status = &next
		changes.Timeline = append(changes.Timeline, s.event(actor, statusEventType(next),
			statusChangeDetails(string(oldStatus), string(next)), string(oldStatus), string(next)))
		if next == domain.TicketStatusResolved {
			resolvedAt := s.now().UTC()
			changes.ResolvedAt = &resolvedAt
		}
		statusChanged = true
	}

	if changes.Status != nil || changes.Priority != nil {
		if err := s.tickets.Update(ctx, ticket.ID, changes); err != nil {
			return nil, mapRepoError(err, "ticket", id)
		}
		s.metrics.RecordLifecycle(string(events.EntityTicket), "update")
	}
	if statusChanged {
		s.publishStatusChanged(ctx, actor, ticket, oldStatus, *changes.Status, "")
	}

	if input.AssignedTo != nil {
		return s.assignments.AssignTicket(ctx, actor, ticket.ID, *input.AssignedTo)
	}
	return s.reload(ctx, ticket.ID)
}

// AddComment appends a comment and a matching timeline entry in one write.
func (s *TicketService) AddComment(ctx context.Context, actor *domain.User, id, text string, attachments []domain.Attachment) (*domain.Ticket, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"text": "is required"})
	}
	ticket, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	comment := s.comment(actor, text, attachments)
	err = s.tickets.Update(ctx, ticket.ID, repository.TicketChanges{
		Comments: []domain.Comment{comment},
		Timeline: []domain.TimelineEvent{
			s.event(actor, domain.TimelineCommented, commentDetails(len(attachments)), "", ""),
		},
	})
	if err != nil {
		return nil, mapRepoError(err, "ticket", id)
	}
	s.metrics.RecordLifecycle(string(events.EntityTicket), "comment")
	return s.reload(ctx, ticket.ID)
}

// AssignTicket delegates to the assignment service.
func (s *TicketService) AssignTicket(ctx context.Context, actor *domain.User, id, agentID string) (*domain.Ticket, error) {
	return s.assignments.AssignTicket(ctx, actor, id, agentID)
}

// MarkResolved is the shortcut for resolving a ticket. Its timeline entry
// reads "Ticket marked as resolved" rather than the generic status text.
func (s *TicketService) MarkResolved(ctx context.Context, actor *domain.User, id string) (*domain.Ticket, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	ticket, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if ticket.Status == domain.TicketStatusResolved {
		return ticket, nil
	}
	oldStatus := ticket.Status
	next := domain.TicketStatusResolved
	if err := s.checkTransition("ticket", ticket.ID, string(oldStatus), string(next),
		domain.IsAdvisedTicketTransition(oldStatus, next)); err != nil {
		return nil, err
	}

	resolvedAt := s.now().UTC()
	err = s.tickets.Update(ctx, ticket.ID, repository.TicketChanges{
		Status:     &next,
		ResolvedAt: &resolvedAt,
		Timeline: []domain.TimelineEvent{
			s.event(actor, domain.TimelineResolved, "Ticket marked as resolved", string(oldStatus), string(next)),
		},
	})
	if err != nil {
		return nil, mapRepoError(err, "ticket", id)
	}
	s.metrics.RecordLifecycle(string(events.EntityTicket), "resolve")
	s.publishStatusChanged(ctx, actor, ticket, oldStatus, next, "")
	return s.reload(ctx, ticket.ID)
}

// Stats aggregates tickets visible to the actor.
func (s *TicketService) Stats(ctx context.Context, actor *domain.User) (*domain.Stats, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	filter := repository.TicketFilter{}
	switch actor.Role {
	case domain.RoleAgent:
		filter.AssignedTo = &actor.ID
	case domain.RoleEmployee:
		filter.CreatedBy = &actor.ID
	}
	stats, err := s.tickets.Stats(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return stats, nil
}

func (s *TicketService) reload(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "ticket", id)
	}
	return ticket, nil
}

func (s *TicketService) publishStatusChanged(ctx context.Context, actor *domain.User, ticket *domain.Ticket, from, to domain.TicketStatus, note string) {
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:       events.EventStatusChanged,
		Entity:     events.EntityTicket,
		EntityID:   ticket.ID,
		EntityCode: ticket.TicketCode,
		ActorID:    actor.ID,
		Recipient: events.Recipient{
			UserID: ticket.CreatedBy,
			Name:   ticket.CreatedByName,
			Email:  ticket.CreatedByEmail,
		},
		Payload: events.StatusChangedPayload{
			OldStatus: string(from),
			NewStatus: string(to),
			Note:      note,
		},
	})
}

func statusEventType(status domain.TicketStatus) domain.TimelineEventType {
	switch status {
	case domain.TicketStatusResolved:
		return domain.TimelineResolved
	case domain.TicketStatusClosed:
		return domain.TimelineClosed
	default:
		return domain.TimelineStatusChanged
	}
}
