package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// AuthService coordinates registration, login and credential flows.
type AuthService struct {
	users      repository.UserRepository
	accounts   *UserService
	resets     repository.PasswordResetRepository
	dispatcher events.Dispatcher
	tokenMgr   *auth.TokenManager
	bcryptCost int
	resetTTL   time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	Users             *UserService
	PasswordResetRepo repository.PasswordResetRepository
	Dispatcher        events.Dispatcher
	Logger            *zap.Logger
}

// SignupInput is the self-registration payload. The role is always employee.
type SignupInput struct {
	Name       string
	Email      string
	Password   string
	Department string
}

// Session pairs an authenticated user with a fresh token.
type Session struct {
	User  *domain.User
	Token *domain.Token
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	accounts := deps.Users
	if accounts == nil {
		accounts = NewUserService(UserDependencies{UserRepo: deps.UserRepo, BcryptCost: cfg.Auth.BcryptCost, Logger: logger})
	}
	return &AuthService{
		users:      deps.UserRepo,
		accounts:   accounts,
		resets:     deps.PasswordResetRepo,
		dispatcher: deps.Dispatcher,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   cfg.Auth.PasswordResetTTL(),
		logger:     logger,
		now:        time.Now,
	}
}

// Signup registers an employee account and signs it in.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*Session, error) {
	user, err := s.accounts.register(ctx, UserCreateInput{
		Name:       input.Name,
		Email:      input.Email,
		Password:   input.Password,
		Role:       domain.RoleEmployee,
		Department: input.Department,
	})
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Login authenticates by email and password. Unknown email and bad password
// share one message; the active check only runs once the password matched.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("Invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		if auth.IsMismatch(err) {
			return nil, apperrors.NewUnauthorized("Invalid credentials")
		}
		return nil, apperrors.NewInternalError(err)
	}
	if !user.IsActive {
		return nil, apperrors.NewAccountDeactivated()
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *domain.User) (*Session, error) {
	token, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &Session{User: user, Token: token}, nil
}

// Me returns the caller's own profile.
func (s *AuthService) Me(_ context.Context, actor *domain.User) (*domain.User, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	return actor, nil
}

// UpdateProfile lets users rename themselves.
func (s *AuthService) UpdateProfile(ctx context.Context, actor *domain.User, name string) (*domain.User, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"name": "is required"})
	}
	updated := *actor
	updated.Name = name
	if err := s.users.Update(ctx, &updated); err != nil {
		return nil, mapRepoError(err, "user", actor.ID)
	}
	return &updated, nil
}

// ChangePassword verifies the current password before storing the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, actor *domain.User, currentPassword, newPassword string) error {
	if err := requireActive(actor); err != nil {
		return err
	}
	errs := fieldErrors{}
	errs.required("currentPassword", currentPassword)
	validatePassword(errs, "newPassword", newPassword)
	if err := errs.err(); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return mapRepoError(err, "user", actor.ID)
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		if auth.IsMismatch(err) {
			return apperrors.NewValidationError("current password is incorrect",
				map[string]any{"currentPassword": "does not match"})
		}
		return apperrors.NewInternalError(err)
	}
	return s.setPassword(ctx, user, newPassword)
}

// RequestPasswordReset issues a single-use token and emails it. Unknown or
// inactive addresses succeed silently.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return apperrors.MapError(err)
	}
	if !user.IsActive {
		return nil
	}

	token := uuid.NewString()
	if err := s.resets.Save(ctx, token, user.ID, s.resetTTL); err != nil {
		return apperrors.NewInternalError(err)
	}
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventPasswordReset,
		Entity:    events.EntityUser,
		EntityID:  user.ID,
		ActorID:   user.ID,
		Recipient: recipientOf(user),
		Payload: events.PasswordResetPayload{
			Token:     token,
			ExpiresAt: s.now().Add(s.resetTTL).UTC(),
		},
	})
	return nil
}

// ConfirmPasswordReset consumes the token and sets a new password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	errs := fieldErrors{}
	errs.required("token", token)
	validatePassword(errs, "password", newPassword)
	if err := errs.err(); err != nil {
		return err
	}

	userID, err := s.resets.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewValidationError("reset token is invalid or expired", map[string]any{"token": "invalid"})
		}
		return apperrors.NewInternalError(err)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return mapRepoError(err, "user", userID)
	}
	if !user.IsActive {
		return apperrors.NewAccountDeactivated()
	}
	return s.setPassword(ctx, user, newPassword)
}

func (s *AuthService) setPassword(ctx context.Context, user *domain.User, password string) error {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return mapRepoError(err, "user", user.ID)
	}
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
