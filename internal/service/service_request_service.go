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

const serviceRequestCodePrefix = "SR"

// ServiceRequestService coordinates service request workflows.
type ServiceRequestService struct {
	lifecycle
	requests    repository.ServiceRequestRepository
	sequence    repository.SequenceGenerator
	assignments *AssignmentService
	dispatcher  events.Dispatcher
}

// ServiceRequestDependencies bundles collaborators.
type ServiceRequestDependencies struct {
	ServiceRequestRepo repository.ServiceRequestRepository
	Sequence           repository.SequenceGenerator
	Assignments        *AssignmentService
	Dispatcher         events.Dispatcher
	Logger             *zap.Logger
	Metrics            *observability.Metrics
	Options            LifecycleOptions
}

// ServiceRequestCreateInput is the creation payload.
type ServiceRequestCreateInput struct {
	ServiceType   string
	TypeOfService string
	Description   string
	Priority      domain.Priority
	DateFrom      *time.Time
	DateTo        *time.Time
	Duration      string
	Location      string
}

// ServiceRequestUpdateInput is a partial update; nil fields are left alone.
type ServiceRequestUpdateInput struct {
	Status     *domain.RequestStatus
	Priority   *domain.Priority
	AssignedTo *string
}

// ServiceRequestListInput describes listing filters.
type ServiceRequestListInput struct {
	Scope       ListScope
	Statuses    []domain.RequestStatus
	Priorities  []domain.Priority
	ServiceType string
	Search      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	AssignedTo  *string
	Unassigned  bool
	SortBy      string
	SortOrder   string
	PageRequest
}

// NewServiceRequestService constructs the service.
func NewServiceRequestService(deps ServiceRequestDependencies) *ServiceRequestService {
	return &ServiceRequestService{
		lifecycle:   newLifecycle(deps.Options, deps.Logger, deps.Metrics),
		requests:    deps.ServiceRequestRepo,
		sequence:    deps.Sequence,
		assignments: deps.Assignments,
		dispatcher:  deps.Dispatcher,
	}
}

// CreateServiceRequest validates the payload in full before allocating a code
// or touching storage.
func (s *ServiceRequestService) CreateServiceRequest(ctx context.Context, actor *domain.User, input ServiceRequestCreateInput) (*domain.ServiceRequest, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}

	input.ServiceType = strings.TrimSpace(input.ServiceType)
	input.TypeOfService = strings.TrimSpace(input.TypeOfService)
	input.Description = strings.TrimSpace(input.Description)
	input.Duration = strings.TrimSpace(input.Duration)
	input.Location = strings.TrimSpace(input.Location)
	if input.Priority == "" {
		input.Priority = domain.PriorityMedium
	}

	errs := fieldErrors{}
	errs.required("serviceType", input.ServiceType)
	errs.required("typeOfService", input.TypeOfService)
	errs.required("description", input.Description)
	if len([]rune(input.Description)) < minDescriptionLength {
		errs.add("description", "must be at least 10 characters")
	}
	errs.required("duration", input.Duration)
	if !input.Priority.Valid() {
		errs.add("priority", "must be one of Low, Medium, High, Critical")
	}
	if input.DateFrom == nil {
		errs.add("dateFrom", "is required")
	}
	if input.DateTo == nil {
		errs.add("dateTo", "is required")
	}
	if input.DateFrom != nil && input.DateTo != nil && input.DateTo.Before(*input.DateFrom) {
		errs.add("dateTo", "must not be before dateFrom")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	n, err := s.sequence.Next(ctx, repository.SequenceServiceRequest)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	req := &domain.ServiceRequest{
		RequestCode:   repository.FormatCode(serviceRequestCodePrefix, n),
		ServiceType:   input.ServiceType,
		TypeOfService: input.TypeOfService,
		Description:   input.Description,
		Priority:      input.Priority,
		DateFrom:      input.DateFrom.UTC(),
		DateTo:        input.DateTo.UTC(),
		Duration:      input.Duration,
		Location:      input.Location,
		Status:        domain.RequestStatusPending,
		CreatedBy:     actor.ID,
		Comments:      []domain.Comment{},
		Timeline: []domain.TimelineEvent{
			s.event(actor, domain.TimelineCreated, "Service request created", "", string(input.Priority)),
		},
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, mapRepoError(err, "service request", req.RequestCode)
	}
	req.CreatedByName = actor.Name
	req.CreatedByEmail = actor.Email

	s.metrics.RecordLifecycle(string(events.EntityServiceRequest), "create")
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:       events.EventCreated,
		Entity:     events.EntityServiceRequest,
		EntityID:   req.ID,
		EntityCode: req.RequestCode,
		ActorID:    actor.ID,
		Recipient:  recipientOf(actor),
		Payload: events.CreatedPayload{
			Summary:  req.ServiceType,
			Priority: string(req.Priority),
			Status:   string(req.Status),
		},
	})
	return req, nil
}

// GetServiceRequest returns a request the actor may see.
func (s *ServiceRequestService) GetServiceRequest(ctx context.Context, actor *domain.User, id string) (*domain.ServiceRequest, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	return s.load(ctx, actor, id)
}

func (s *ServiceRequestService) load(ctx context.Context, actor *domain.User, id string) (*domain.ServiceRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "service request", id)
	}
	if err := authorizeRecord(actor, "service request", req.CreatedBy, req.AssignedTo); err != nil {
		return nil, err
	}
	return req, nil
}

// ListServiceRequests returns a page of requests within the requested scope.
func (s *ServiceRequestService) ListServiceRequests(ctx context.Context, actor *domain.User, input ServiceRequestListInput) (Page[domain.ServiceRequest], error) {
	if err := requireActive(actor); err != nil {
		return Page[domain.ServiceRequest]{}, err
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
	if err := errs.err(); err != nil {
		return Page[domain.ServiceRequest]{}, err
	}

	page, limit, window := input.PageRequest.normalize()
	filter := repository.ServiceRequestFilter{
		Statuses:    input.Statuses,
		Priorities:  input.Priorities,
		ServiceType: strings.TrimSpace(input.ServiceType),
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
			return Page[domain.ServiceRequest]{}, err
		}
		filter.AssignedTo = &actor.ID
	case ScopeAll:
		if err := requireRole(actor, domain.RoleAdmin); err != nil {
			return Page[domain.ServiceRequest]{}, err
		}
		filter.AssignedTo = input.AssignedTo
		filter.Unassigned = input.Unassigned
	default:
		return Page[domain.ServiceRequest]{}, apperrors.NewValidationError("validation failed", map[string]any{"scope": "unknown scope"})
	}

	reqs, total, err := s.requests.List(ctx, filter)
	if err != nil {
		return Page[domain.ServiceRequest]{}, apperrors.MapError(err)
	}
	return newPage(reqs, page, limit, total), nil
}

// UpdateServiceRequest applies status, priority and assignee changes.
func (s *ServiceRequestService) UpdateServiceRequest(ctx context.Context, actor *domain.User, id string, input ServiceRequestUpdateInput) (*domain.ServiceRequest, error) {
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

	req, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if input.AssignedTo != nil {
		if err := s.assignments.CheckAssignee(ctx, actor, *input.AssignedTo); err != nil {
			return nil, err
		}
	}

	changes := repository.ServiceRequestChanges{}
	if input.Priority != nil && *input.Priority != req.Priority {
		changes.Priority = input.Priority
	}
	oldStatus := req.Status
	if input.Status != nil && *input.Status != req.Status {
		next := *input.Status
		if err := s.checkTransition("service_request", req.ID, string(oldStatus), string(next),
			domain.IsAdvisedRequestTransition(oldStatus, next)); err != nil {
			return nil, err
		}
		changes.Status = &next
		changes.Timeline = append(changes.Timeline, s.event(actor, domain.TimelineStatusChanged,
			statusChangeDetails(string(oldStatus), string(next)), string(oldStatus), string(next)))
	}

	if changes.Status != nil || changes.Priority != nil {
		if err := s.requests.Update(ctx, req.ID, changes); err != nil {
			return nil, mapRepoError(err, "service request", id)
		}
		s.metrics.RecordLifecycle(string(events.EntityServiceRequest), "update")
	}
	if changes.Status != nil {
		s.publishStatusChanged(ctx, actor, req, oldStatus, *changes.Status, "")
	}

	if input.AssignedTo != nil {
		return s.assignments.AssignServiceRequest(ctx, actor, req.ID, *input.AssignedTo)
	}
	return s.reload(ctx, req.ID)
}

// AddComment appends a comment and a matching timeline entry in one write.
// Service request comments never carry attachments.
func (s *ServiceRequestService) AddComment(ctx context.Context, actor *domain.User, id, text string) (*domain.ServiceRequest, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"text": "is required"})
	}
	req, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	err = s.requests.Update(ctx, req.ID, repository.ServiceRequestChanges{
		Comments: []domain.Comment{s.comment(actor, text, nil)},
		Timeline: []domain.TimelineEvent{
			s.event(actor, domain.TimelineCommented, commentDetails(0), "", ""),
		},
	})
	if err != nil {
		return nil, mapRepoError(err, "service request", id)
	}
	s.metrics.RecordLifecycle(string(events.EntityServiceRequest), "comment")
	return s.reload(ctx, req.ID)
}

// AssignServiceRequest delegates to the assignment service.
func (s *ServiceRequestService) AssignServiceRequest(ctx context.Context, actor *domain.User, id, agentID string) (*domain.ServiceRequest, error) {
	return s.assignments.AssignServiceRequest(ctx, actor, id, agentID)
}

// Approve moves a request to Approved with an optional note.
func (s *ServiceRequestService) Approve(ctx context.Context, actor *domain.User, id, note string) (*domain.ServiceRequest, error) {
	return s.decide(ctx, actor, id, domain.RequestStatusApproved, "Request approved", note, "approve")
}

// Reject moves a request to Rejected with an optional reason.
func (s *ServiceRequestService) Reject(ctx context.Context, actor *domain.User, id, reason string) (*domain.ServiceRequest, error) {
	return s.decide(ctx, actor, id, domain.RequestStatusRejected, "Request rejected", reason, "reject")
}

func (s *ServiceRequestService) decide(ctx context.Context, actor *domain.User, id string, next domain.RequestStatus, details, note, op string) (*domain.ServiceRequest, error) {
	if err := requireRole(actor, domain.RoleAgent); err != nil {
		return nil, err
	}
	req, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Status == next {
		return req, nil
	}
	oldStatus := req.Status
	if err := s.checkTransition("service_request", req.ID, string(oldStatus), string(next),
		domain.IsAdvisedRequestTransition(oldStatus, next)); err != nil {
		return nil, err
	}
	note = strings.TrimSpace(note)
	if note != "" {
		details += ": " + note
	}

	err = s.requests.Update(ctx, req.ID, repository.ServiceRequestChanges{
		Status: &next,
		Timeline: []domain.TimelineEvent{
			s.event(actor, domain.TimelineStatusChanged, details, string(oldStatus), string(next)),
		},
	})
	if err != nil {
		return nil, mapRepoError(err, "service request", id)
	}
	s.metrics.RecordLifecycle(string(events.EntityServiceRequest), op)
	s.publishStatusChanged(ctx, actor, req, oldStatus, next, note)
	return s.reload(ctx, req.ID)
}

// Stats aggregates requests visible to the actor.
func (s *ServiceRequestService) Stats(ctx context.Context, actor *domain.User) (*domain.Stats, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	filter := repository.ServiceRequestFilter{}
	switch actor.Role {
	case domain.RoleAgent:
		filter.AssignedTo = &actor.ID
	case domain.RoleEmployee:
		filter.CreatedBy = &actor.ID
	}
	stats, err := s.requests.Stats(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return stats, nil
}

func (s *ServiceRequestService) reload(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "service request", id)
	}
	return req, nil
}

func (s *ServiceRequestService) publishStatusChanged(ctx context.Context, actor *domain.User, req *domain.ServiceRequest, from, to domain.RequestStatus, note string) {
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:       events.EventStatusChanged,
		Entity:     events.EntityServiceRequest,
		EntityID:   req.ID,
		EntityCode: req.RequestCode,
		ActorID:    actor.ID,
		Recipient: events.Recipient{
			UserID: req.CreatedBy,
			Name:   req.CreatedByName,
			Email:  req.CreatedByEmail,
		},
		Payload: events.StatusChangedPayload{
			OldStatus: string(from),
			NewStatus: string(to),
			Note:      note,
		},
	})
}
