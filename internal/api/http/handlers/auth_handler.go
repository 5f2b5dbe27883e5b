package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// AuthHandler exposes signup, login and self-service account endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Signup handles POST /api/auth/signup.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	session, err := h.auth.Signup(c.UserContext(), service.SignupInput{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Department: req.Department,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Account created", sessionResponse(session))
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}
	session, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Login successful", sessionResponse(session))
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	me, err := h.auth.Me(c.UserContext(), user)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", dto.NewUserResponse(me))
}

// UpdateMe handles PATCH /api/auth/me.
func (h *AuthHandler) UpdateMe(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.ProfileUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	updated, err := h.auth.UpdateProfile(c.UserContext(), user, req.Name)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Profile updated", dto.NewUserResponse(updated))
}

// ChangePassword handles POST /api/auth/password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.PasswordChangeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.auth.ChangePassword(c.UserContext(), user, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Password updated", nil)
}

// ForgotPassword handles POST /api/auth/password/forgot. The response is the
// same whether or not the email is registered.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Email == "" {
		return apperrors.NewValidationError("validation failed", map[string]any{"email": "is required"})
	}
	if err := h.auth.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "If the account exists, a reset link has been sent", nil)
}

// ResetPassword handles POST /api/auth/password/reset.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirmRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.auth.ConfirmPasswordReset(c.UserContext(), req.Token, req.Password); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Password has been reset", nil)
}

func sessionResponse(session *service.Session) dto.AuthResponse {
	return dto.AuthResponse{
		Token:     session.Token.Value,
		ExpiresAt: session.Token.ExpiresAt,
		User:      dto.NewUserResponse(session.User),
	}
}
