package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
)

// ServiceRequestsHandler exposes service request endpoints.
type ServiceRequestsHandler struct {
	requests *service.ServiceRequestService
}

// NewServiceRequestsHandler constructs handler.
func NewServiceRequestsHandler(requestService *service.ServiceRequestService) *ServiceRequestsHandler {
	return &ServiceRequestsHandler{requests: requestService}
}

// Create handles POST /api/service-requests.
func (h *ServiceRequestsHandler) Create(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateServiceRequestRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	created, err := h.requests.CreateServiceRequest(c.UserContext(), actor, service.ServiceRequestCreateInput{
		ServiceType:   req.ServiceType,
		TypeOfService: req.TypeOfService,
		Description:   req.Description,
		Priority:      req.Priority,
		DateFrom:      req.DateFrom,
		DateTo:        req.DateTo,
		Duration:      req.Duration,
		Location:      req.Location,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Service request created", dto.NewServiceRequestResponse(created))
}

// ListMine handles GET /api/service-requests/my.
func (h *ServiceRequestsHandler) ListMine(c *fiber.Ctx) error {
	return h.list(c, service.ScopeMine)
}

// ListAssigned handles GET /api/service-requests/assigned.
func (h *ServiceRequestsHandler) ListAssigned(c *fiber.Ctx) error {
	return h.list(c, service.ScopeAssigned)
}

// ListAll handles GET /api/service-requests.
func (h *ServiceRequestsHandler) ListAll(c *fiber.Ctx) error {
	return h.list(c, service.ScopeAll)
}

func (h *ServiceRequestsHandler) list(c *fiber.Ctx, scope service.ListScope) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	page, err := h.requests.ListServiceRequests(c.UserContext(), actor, service.ServiceRequestListInput{
		Scope:       scope,
		Statuses:    parseEnumList[domain.RequestStatus](c, "status"),
		Priorities:  parseEnumList[domain.Priority](c, "priority"),
		ServiceType: c.Query("serviceType"),
		Search:      c.Query("search"),
		CreatedFrom: parseTime(c.Query("createdFrom")),
		CreatedTo:   parseTimeEnd(c.Query("createdTo")),
		AssignedTo:  parseOptionalString(c, "assignedTo"),
		Unassigned:  c.QueryBool("unassigned"),
		SortBy:      c.Query("sortBy"),
		SortOrder:   c.Query("sortOrder"),
		PageRequest: parsePageRequest(c),
	})
	if err != nil {
		return err
	}
	return respondPage(c, "Service requests retrieved", page, dto.NewServiceRequestResponses)
}

// Stats handles GET /api/service-requests/stats.
func (h *ServiceRequestsHandler) Stats(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	stats, err := h.requests.Stats(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", stats)
}

// Get handles GET /api/service-requests/:id.
func (h *ServiceRequestsHandler) Get(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	req, err := h.requests.GetServiceRequest(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", dto.NewServiceRequestResponse(req))
}

// Update handles PATCH /api/service-requests/:id.
func (h *ServiceRequestsHandler) Update(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var body dto.UpdateServiceRequestRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	req, err := h.requests.UpdateServiceRequest(c.UserContext(), actor, c.Params("id"), service.ServiceRequestUpdateInput{
		Status:     body.Status,
		Priority:   body.Priority,
		AssignedTo: body.AssignedTo,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Service request updated", dto.NewServiceRequestResponse(req))
}

// AddComment handles POST /api/service-requests/:id/comments.
func (h *ServiceRequestsHandler) AddComment(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var body dto.CommentRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	req, err := h.requests.AddComment(c.UserContext(), actor, c.Params("id"), body.Text)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Comment added", dto.NewServiceRequestResponse(req))
}

// Assign handles PATCH /api/service-requests/:id/assign.
func (h *ServiceRequestsHandler) Assign(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var body dto.AssignRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	req, err := h.requests.AssignServiceRequest(c.UserContext(), actor, c.Params("id"), body.Target())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Service request assigned", dto.NewServiceRequestResponse(req))
}

// Approve handles PATCH /api/service-requests/:id/approve.
func (h *ServiceRequestsHandler) Approve(c *fiber.Ctx) error {
	return h.decide(c, "Service request approved", h.requests.Approve)
}

// Reject handles PATCH /api/service-requests/:id/reject.
func (h *ServiceRequestsHandler) Reject(c *fiber.Ctx) error {
	return h.decide(c, "Service request rejected", h.requests.Reject)
}

type decisionFunc func(ctx context.Context, actor *domain.User, id, text string) (*domain.ServiceRequest, error)

func (h *ServiceRequestsHandler) decide(c *fiber.Ctx, message string, apply decisionFunc) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var body dto.DecisionRequest
	// The body is optional for decisions.
	if len(c.Body()) > 0 {
		if err := parseBody(c, &body); err != nil {
			return err
		}
	}
	req, err := apply(c.UserContext(), actor, c.Params("id"), body.Text())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, message, dto.NewServiceRequestResponse(req))
}
