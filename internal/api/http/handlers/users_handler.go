package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
)

// UsersHandler exposes account administration endpoints.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// List handles GET /api/users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	input := service.UserListInput{
		IsActive:    parseOptionalBool(c, "isActive"),
		Search:      c.Query("search"),
		PageRequest: parsePageRequest(c),
	}
	if role := parseOptionalString(c, "role"); role != nil {
		r := domain.Role(*role)
		input.Role = &r
	}
	page, err := h.users.ListUsers(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	return respondPage(c, "Users retrieved", page, dto.NewUserResponses)
}

// Agents handles GET /api/users/agents.
func (h *UsersHandler) Agents(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	agents, err := h.users.ListAgents(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", dto.NewUserResponses(agents))
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.CreateUser(c.UserContext(), actor, service.UserCreateInput{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Role:       req.Role,
		Department: req.Department,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "User created", dto.NewUserResponse(user))
}

// Get handles GET /api/users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	user, err := h.users.GetUser(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", dto.NewUserResponse(user))
}

// Update handles PATCH /api/users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.UpdateUser(c.UserContext(), actor, c.Params("id"), service.UserUpdateInput{
		Name:       req.Name,
		Role:       req.Role,
		Department: req.Department,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "User updated", dto.NewUserResponse(user))
}

// Activate handles PATCH /api/users/:id/activate.
func (h *UsersHandler) Activate(c *fiber.Ctx) error {
	return h.setActive(c, true, "User activated")
}

// Deactivate handles PATCH /api/users/:id/deactivate.
func (h *UsersHandler) Deactivate(c *fiber.Ctx) error {
	return h.setActive(c, false, "User deactivated")
}

func (h *UsersHandler) setActive(c *fiber.Ctx, active bool, message string) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	user, err := h.users.SetActive(c.UserContext(), actor, c.Params("id"), active)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, message, dto.NewUserResponse(user))
}
