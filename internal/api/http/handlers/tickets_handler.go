package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
)

// TicketsHandler exposes ticket endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService}
}

// Create handles POST /api/tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.CreateTicket(c.UserContext(), actor, service.TicketCreateInput{
		Type:        req.Type,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		Description: req.Description,
		Priority:    req.Priority,
		Attachments: req.Attachments,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Ticket created", dto.NewTicketResponse(ticket))
}

// ListMine handles GET /api/tickets/my.
func (h *TicketsHandler) ListMine(c *fiber.Ctx) error {
	return h.list(c, service.ScopeMine)
}

// ListAssigned handles GET /api/tickets/assigned.
func (h *TicketsHandler) ListAssigned(c *fiber.Ctx) error {
	return h.list(c, service.ScopeAssigned)
}

// ListAll handles GET /api/tickets.
func (h *TicketsHandler) ListAll(c *fiber.Ctx) error {
	return h.list(c, service.ScopeAll)
}

func (h *TicketsHandler) list(c *fiber.Ctx, scope service.ListScope) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	input := service.TicketListInput{
		Scope:       scope,
		Statuses:    parseEnumList[domain.TicketStatus](c, "status"),
		Priorities:  parseEnumList[domain.Priority](c, "priority"),
		Search:      c.Query("search"),
		CreatedFrom: parseTime(c.Query("createdFrom")),
		CreatedTo:   parseTimeEnd(c.Query("createdTo")),
		AssignedTo:  parseOptionalString(c, "assignedTo"),
		Unassigned:  c.QueryBool("unassigned"),
		SortBy:      c.Query("sortBy"),
		SortOrder:   c.Query("sortOrder"),
		PageRequest: parsePageRequest(c),
	}
	if issueType := parseOptionalString(c, "type"); issueType != nil {
		t := domain.IssueType(*issueType)
		input.Type = &t
	}
	page, err := h.tickets.ListTickets(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	return respondPage(c, "Tickets retrieved", page, dto.NewTicketResponses)
}

// Stats handles GET /api/tickets/stats.
func (h *TicketsHandler) Stats(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	stats, err := h.tickets.Stats(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", stats)
}

// Get handles GET /api/tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.GetTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", dto.NewTicketResponse(ticket))
}

// Update handles PATCH /api/tickets/:id.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.UpdateTicket(c.UserContext(), actor, c.Params("id"), service.TicketUpdateInput{
		Status:     req.Status,
		Priority:   req.Priority,
		AssignedTo: req.AssignedTo,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Ticket updated", dto.NewTicketResponse(ticket))
}

// AddComment handles POST /api/tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CommentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.AddComment(c.UserContext(), actor, c.Params("id"), req.Text, req.Attachments)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Comment added", dto.NewTicketResponse(ticket))
}

// Assign handles PATCH /api/tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.AssignTicket(c.UserContext(), actor, c.Params("id"), req.Target())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Ticket assigned", dto.NewTicketResponse(ticket))
}

// Resolve handles PATCH /api/tickets/:id/resolve.
func (h *TicketsHandler) Resolve(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.MarkResolved(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Ticket resolved", dto.NewTicketResponse(ticket))
}
