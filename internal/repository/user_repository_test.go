package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
)

var userColumnNames = []string{"id", "name", "email", "password_hash", "role", "department", "is_active", "created_at", "updated_at"}

func TestUserRepositoryCreateLowercasesEmail(t *testing.T) {
	mock := newMockPool(t)
	repo := NewUserRepository(mock)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("Eve", "eve@example.com", "hash", domain.RoleEmployee, "Finance", true).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("u1", now, now))

	user := &domain.User{Name: "Eve", Email: "Eve@Example.com", PasswordHash: "hash", Role: domain.RoleEmployee, Department: "Finance", IsActive: true}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.Equal(t, "u1", user.ID)
}

func TestUserRepositoryCreateDuplicateEmail(t *testing.T) {
	mock := newMockPool(t)
	repo := NewUserRepository(mock)

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	err := repo.Create(context.Background(), &domain.User{Email: "eve@example.com", Role: domain.RoleEmployee})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUserRepositoryGetByEmail(t *testing.T) {
	mock := newMockPool(t)
	repo := NewUserRepository(mock)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email=$1`)).
		WithArgs("ada@example.com").
		WillReturnRows(pgxmock.NewRows(userColumnNames).
			AddRow("u2", "Ada", "ada@example.com", "hash", domain.RoleAgent, "IT", false, now, now))

	user, err := repo.GetByEmail(context.Background(), "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAgent, user.Role)
	assert.False(t, user.IsActive)

	mock.ExpectQuery(`FROM users WHERE id=\$1`).WithArgs("u9").WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetByID(context.Background(), "u9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepositoryListFilters(t *testing.T) {
	mock := newMockPool(t)
	repo := NewUserRepository(mock)
	now := time.Now()
	active := true

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM users WHERE role IN ($1,$2) AND is_active=$3`)).
		WithArgs("agent", "admin", active).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at DESC LIMIT 10 OFFSET 10`)).
		WithArgs("agent", "admin", active).
		WillReturnRows(pgxmock.NewRows(userColumnNames).
			AddRow("u2", "Ada", "ada@example.com", "hash", domain.RoleAgent, "IT", true, now, now))

	users, total, err := repo.List(context.Background(), UserFilter{Roles: []domain.Role{domain.RoleAgent, domain.RoleAdmin}, IsActive: &active, Page: Page{Limit: 10, Offset: 10}})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, users, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
