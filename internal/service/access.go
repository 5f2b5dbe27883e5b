package service

import (
	"errors"
	"strings"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// requireActive rejects missing or deactivated callers. Services check this
// themselves rather than trusting the HTTP gate.
func requireActive(actor *domain.User) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if !actor.IsActive {
		return apperrors.NewAccountDeactivated()
	}
	return nil
}

func requireRole(actor *domain.User, min domain.Role) error {
	if err := requireActive(actor); err != nil {
		return err
	}
	if !actor.Role.AtLeast(min) {
		return apperrors.NewForbidden("insufficient role")
	}
	return nil
}

// authorizeRecord applies the ownership rule shared by tickets and service
// requests: admins see everything, agents only what is assigned to them and
// employees only what they created. Existence is already confirmed, so the
// failure is access denied rather than not found.
func authorizeRecord(actor *domain.User, resource, createdBy string, assignedTo *string) error {
	if err := requireActive(actor); err != nil {
		return err
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleAgent:
		if assignedTo != nil && *assignedTo == actor.ID {
			return nil
		}
	case domain.RoleEmployee:
		if createdBy == actor.ID {
			return nil
		}
	}
	return apperrors.NewAccessDenied(resource)
}

func mapRepoError(err error, resource, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict(resource+" already exists", nil)
	default:
		return apperrors.MapError(err)
	}
}

// fieldErrors collects per-field validation messages.
type fieldErrors map[string]any

func (f fieldErrors) add(field, message string) {
	if _, exists := f[field]; !exists {
		f[field] = message
	}
}

func (f fieldErrors) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		f.add(field, "is required")
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return apperrors.NewValidationError("validation failed", map[string]any(f))
}
