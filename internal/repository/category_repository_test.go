package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func TestCategoryRepositoryCreateDuplicate(t *testing.T) {
	mock := newMockPool(t)
	repo := NewCategoryRepository(mock)

	mock.ExpectQuery("INSERT INTO categories").
		WithArgs("Printer", domain.IssueTypeHardware, []string{}, true).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_categories_name_type"})

	err := repo.Create(context.Background(), &domain.Category{Name: "Printer", Type: domain.IssueTypeHardware, IsActive: true})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestCategoryRepositoryListActiveByDefault(t *testing.T) {
	mock := newMockPool(t)
	repo := NewCategoryRepository(mock)
	now := time.Now()
	hardware := domain.IssueTypeHardware

	mock.ExpectQuery(regexp.QuoteMeta(`FROM categories WHERE is_active=$1 AND type=$2 ORDER BY type ASC, name ASC`)).
		WithArgs(true, hardware).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "type", "subcategories", "is_active", "created_at", "updated_at"}).
			AddRow("c1", "Monitor", domain.IssueTypeHardware, []string{"Flicker"}, true, now, now).
			AddRow("c2", "Printer", domain.IssueTypeHardware, []string{}, true, now, now))

	categories, err := repo.List(context.Background(), CategoryFilter{Type: &hardware})
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Monitor", categories[0].Name)
	assert.Equal(t, []string{"Flicker"}, categories[0].Subcategories)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepositoryAddSubcategoryIsSingleStatement(t *testing.T) {
	mock := newMockPool(t)
	repo := NewCategoryRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta(`CASE WHEN $1 = ANY(subcategories) THEN subcategories ELSE array_append(subcategories, $1) END`)).
		WithArgs("Laser", "c1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta(`array_remove(subcategories, $1)`)).
		WithArgs("Laser", "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, repo.AddSubcategory(context.Background(), "c1", "Laser"))
	assert.ErrorIs(t, repo.RemoveSubcategory(context.Background(), "missing", "Laser"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepositoryDelete(t *testing.T) {
	mock := newMockPool(t)
	repo := NewCategoryRepository(mock)

	mock.ExpectExec("DELETE FROM categories").WithArgs("c1").WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, repo.Delete(context.Background(), "c1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
