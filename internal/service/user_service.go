package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// UserService manages accounts on behalf of administrators.
type UserService struct {
	users      repository.UserRepository
	bcryptCost int
	logger     *zap.Logger
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	BcryptCost int
	Logger     *zap.Logger
}

// UserCreateInput is the admin creation payload.
type UserCreateInput struct {
	Name       string
	Email      string
	Password   string
	Role       domain.Role
	Department string
}

// UserUpdateInput is a partial update; nil fields are left alone.
type UserUpdateInput struct {
	Name       *string
	Role       *domain.Role
	Department *string
}

// UserListInput defines listing parameters.
type UserListInput struct {
	Role     *domain.Role
	IsActive *bool
	Search   string
	PageRequest
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: deps.UserRepo, bcryptCost: deps.BcryptCost, logger: logger}
}

// CreateUser adds an account with any role.
func (s *UserService) CreateUser(ctx context.Context, actor *domain.User, input UserCreateInput) (*domain.User, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if input.Role == "" {
		input.Role = domain.RoleEmployee
	}
	return s.register(ctx, input)
}

// CreateInitialAdmin bootstraps an administrator without an acting user.
func (s *UserService) CreateInitialAdmin(ctx context.Context, name, email, password string) (*domain.User, error) {
	return s.register(ctx, UserCreateInput{Name: name, Email: email, Password: password, Role: domain.RoleAdmin})
}

func (s *UserService) register(ctx context.Context, input UserCreateInput) (*domain.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = normalizeEmail(input.Email)
	input.Department = strings.TrimSpace(input.Department)

	errs := fieldErrors{}
	errs.required("name", input.Name)
	validateEmail(errs, input.Email)
	validatePassword(errs, "password", input.Password)
	if !input.Role.Valid() {
		errs.add("role", "must be employee, agent or admin")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": input.Email})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
		Department:   input.Department,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": input.Email})
		}
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// ListUsers returns a filtered page of accounts.
func (s *UserService) ListUsers(ctx context.Context, actor *domain.User, input UserListInput) (Page[domain.User], error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return Page[domain.User]{}, err
	}
	page, limit, window := input.PageRequest.normalize()
	filter := repository.UserFilter{IsActive: input.IsActive, Search: input.Search, Page: window}
	if input.Role != nil {
		if !input.Role.Valid() {
			return Page[domain.User]{}, apperrors.NewValidationError("validation failed", map[string]any{"role": "unknown role"})
		}
		filter.Roles = []domain.Role{*input.Role}
	}
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return Page[domain.User]{}, apperrors.MapError(err)
	}
	return newPage(users, page, limit, total), nil
}

// ListAgents returns active users that can take assignments.
func (s *UserService) ListAgents(ctx context.Context, actor *domain.User) ([]domain.User, error) {
	if err := requireRole(actor, domain.RoleAgent); err != nil {
		return nil, err
	}
	active := true
	users, _, err := s.users.List(ctx, repository.UserFilter{
		Roles:    []domain.Role{domain.RoleAgent, domain.RoleAdmin},
		IsActive: &active,
		Page:     repository.Page{Limit: 1000},
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// GetUser fetches an account.
func (s *UserService) GetUser(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "user", id)
	}
	return user, nil
}

// UpdateUser changes name, role or department.
func (s *UserService) UpdateUser(ctx context.Context, actor *domain.User, id string, input UserUpdateInput) (*domain.User, error) {
	user, err := s.GetUser(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	errs := fieldErrors{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		errs.required("name", name)
		user.Name = name
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			errs.add("role", "must be employee, agent or admin")
		}
		user.Role = *input.Role
	}
	if input.Department != nil {
		user.Department = strings.TrimSpace(*input.Department)
	}
	if err := errs.err(); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, mapRepoError(err, "user", id)
	}
	return user, nil
}

// SetActive activates or deactivates an account. Deactivation takes effect on
// the user's next request since the gate reloads the user every time.
func (s *UserService) SetActive(ctx context.Context, actor *domain.User, id string, active bool) (*domain.User, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if !active && actor.ID == id {
		return nil, apperrors.NewValidationError("cannot deactivate your own account", map[string]any{"id": id})
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "user", id)
	}
	if user.IsActive == active {
		return user, nil
	}
	user.IsActive = active
	if err := s.users.Update(ctx, user); err != nil {
		return nil, mapRepoError(err, "user", id)
	}
	s.logger.Info("user activation changed", zap.String("user_id", id), zap.Bool("active", active))
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(errs fieldErrors, email string) {
	if email == "" {
		errs.add("email", "is required")
		return
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		errs.add("email", "must be a valid email address")
	}
}

func validatePassword(errs fieldErrors, field, password string) {
	if len(password) < auth.MinPasswordLength {
		errs.add(field, "must be at least 8 characters")
	}
}
