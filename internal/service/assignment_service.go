package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// AssignmentService hands tickets and service requests to agents.
type AssignmentService struct {
	lifecycle
	tickets    repository.TicketRepository
	requests   repository.ServiceRequestRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	TicketRepo         repository.TicketRepository
	ServiceRequestRepo repository.ServiceRequestRepository
	UserRepo           repository.UserRepository
	Dispatcher         events.Dispatcher
	Logger             *zap.Logger
	Metrics            *observability.Metrics
	Options            LifecycleOptions
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		lifecycle:  newLifecycle(deps.Options, deps.Logger, deps.Metrics),
		tickets:    deps.TicketRepo,
		requests:   deps.ServiceRequestRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
	}
}

// assignmentTarget is the slice of a record the assignment rules look at.
type assignmentTarget struct {
	resource       string
	createdBy      string
	assignedTo     *string
	assignedToName *string
}

// prepare validates an assignment. A nil event with a nil error means the
// record is already assigned to agentID.
func (s *AssignmentService) prepare(ctx context.Context, actor *domain.User, rec assignmentTarget, agentID string) (*domain.User, *domain.TimelineEvent, error) {
	if err := authorizeRecord(actor, rec.resource, rec.createdBy, rec.assignedTo); err != nil {
		return nil, nil, err
	}
	target, err := s.assignee(ctx, agentID)
	if err != nil {
		return nil, nil, err
	}
	if rec.assignedTo != nil && *rec.assignedTo == agentID {
		return target, nil, nil
	}

	var event domain.TimelineEvent
	if rec.assignedTo == nil {
		event = s.event(actor, domain.TimelineAssigned, "Assigned to "+target.Name, "", target.ID)
	} else {
		previous := *rec.assignedTo
		if rec.assignedToName != nil && *rec.assignedToName != "" {
			previous = *rec.assignedToName
		}
		event = s.event(actor, domain.TimelineReassigned,
			fmt.Sprintf("Reassigned from %s to %s", previous, target.Name), *rec.assignedTo, target.ID)
	}
	return target, &event, nil
}

// CheckAssignee reports whether actor may hand work to agentID. Update
// paths call it before writing anything so a rejected assignee leaves the
// record untouched.
func (s *AssignmentService) CheckAssignee(ctx context.Context, actor *domain.User, agentID string) error {
	if err := requireRole(actor, domain.RoleAgent); err != nil {
		return err
	}
	_, err := s.assignee(ctx, agentID)
	return err
}

func (s *AssignmentService) assignee(ctx context.Context, agentID string) (*domain.User, error) {
	if agentID == "" {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"assignedTo": "is required"})
	}
	target, err := s.users.GetByID(ctx, agentID)
	if err != nil {
		return nil, mapRepoError(err, "user", agentID)
	}
	if !target.Role.CanWork() {
		return nil, apperrors.NewValidationError("assignee must be an agent or admin",
			map[string]any{"assignedTo": fmt.Sprintf("user has role %s", target.Role)})
	}
	if !target.IsActive {
		return nil, apperrors.NewValidationError("assignee is deactivated",
			map[string]any{"assignedTo": "user is not active"})
	}
	return target, nil
}

// AssignTicket assigns a ticket to an agent or admin.
func (s *AssignmentService) AssignTicket(ctx context.Context, actor *domain.User, ticketID, agentID string) (*domain.Ticket, error) {
	if err := requireRole(actor, domain.RoleAgent); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapRepoError(err, "ticket", ticketID)
	}

	target, event, err := s.prepare(ctx, actor, assignmentTarget{
		resource:       "ticket",
		createdBy:      ticket.CreatedBy,
		assignedTo:     ticket.AssignedTo,
		assignedToName: ticket.AssignedToName,
	}, agentID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return ticket, nil
	}

	previous := ticket.AssignedTo
	err = s.tickets.Update(ctx, ticket.ID, repository.TicketChanges{
		AssignedTo: &target.ID,
		Timeline:   []domain.TimelineEvent{*event},
	})
	if err != nil {
		return nil, mapRepoError(err, "ticket", ticketID)
	}
	s.metrics.RecordLifecycle(string(events.EntityTicket), "assign")
	s.publishAssigned(ctx, actor, events.EntityTicket, ticket.ID, ticket.TicketCode, target, previous)

	updated, err := s.tickets.GetByID(ctx, ticket.ID)
	if err != nil {
		return nil, mapRepoError(err, "ticket", ticketID)
	}
	return updated, nil
}

// AssignServiceRequest assigns a service request to an agent or admin.
func (s *AssignmentService) AssignServiceRequest(ctx context.Context, actor *domain.User, requestID, agentID string) (*domain.ServiceRequest, error) {
	if err := requireRole(actor, domain.RoleAgent); err != nil {
		return nil, err
	}
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, mapRepoError(err, "service request", requestID)
	}

	target, event, err := s.prepare(ctx, actor, assignmentTarget{
		resource:       "service request",
		createdBy:      req.CreatedBy,
		assignedTo:     req.AssignedTo,
		assignedToName: req.AssignedToName,
	}, agentID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return req, nil
	}

	previous := req.AssignedTo
	err = s.requests.Update(ctx, req.ID, repository.ServiceRequestChanges{
		AssignedTo: &target.ID,
		Timeline:   []domain.TimelineEvent{*event},
	})
	if err != nil {
		return nil, mapRepoError(err, "service request", requestID)
	}
	s.metrics.RecordLifecycle(string(events.EntityServiceRequest), "assign")
	s.publishAssigned(ctx, actor, events.EntityServiceRequest, req.ID, req.RequestCode, target, previous)

	updated, err := s.requests.GetByID(ctx, req.ID)
	if err != nil {
		return nil, mapRepoError(err, "service request", requestID)
	}
	return updated, nil
}

func (s *AssignmentService) publishAssigned(ctx context.Context, actor *domain.User, entity events.EntityKind, id, code string, target *domain.User, previous *string) {
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:       events.EventAssigned,
		Entity:     entity,
		EntityID:   id,
		EntityCode: code,
		ActorID:    actor.ID,
		Recipient:  recipientOf(target),
		Payload: events.AssignedPayload{
			AssigneeID:       target.ID,
			PreviousAssignee: previous,
		},
	})
}

// publish fills envelope fields and hands the event to the dispatcher.
// Failures are logged; notifications never fail the operation.
func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("publish event failed",
			zap.String("event_type", string(event.Type)),
			zap.String("entity_id", event.EntityID),
			zap.Error(err))
	}
}

func recipientOf(user *domain.User) events.Recipient {
	return events.Recipient{UserID: user.ID, Name: user.Name, Email: user.Email}
}
