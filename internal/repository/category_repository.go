package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CategoryFilter narrows category listings.
type CategoryFilter struct {
	Type            *domain.IssueType
	IncludeInactive bool
}

// CategoryRepository manages category persistence.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	Update(ctx context.Context, category *domain.Category) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	GetByNameAndType(ctx context.Context, name string, issueType domain.IssueType) (*domain.Category, error)
	List(ctx context.Context, filter CategoryFilter) ([]domain.Category, error)
	AddSubcategory(ctx context.Context, id, name string) error
	RemoveSubcategory(ctx context.Context, id, name string) error
}

type categoryRepository struct {
	db DBTX
}

// NewCategoryRepository builds the repository.
func NewCategoryRepository(db DBTX) CategoryRepository {
	return &categoryRepository{db: db}
}

const categoryColumns = `id, name, type, subcategories, is_active, created_at, updated_at`

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	const query = `
        INSERT INTO categories (name, type, subcategories, is_active)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	if category.Subcategories == nil {
		category.Subcategories = []string{}
	}
	err := r.db.QueryRow(ctx, query,
		category.Name,
		category.Type,
		category.Subcategories,
		category.IsActive,
	).Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
	return translateError(err)
}

func (r *categoryRepository) Update(ctx context.Context, category *domain.Category) error {
	const query = `
        UPDATE categories SET name=$1, type=$2, subcategories=$3, is_active=$4, updated_at=NOW()
        WHERE id=$5`
	if category.Subcategories == nil {
		category.Subcategories = []string{}
	}
	cmd, err := r.db.Exec(ctx, query,
		category.Name,
		category.Type,
		category.Subcategories,
		category.IsActive,
		category.ID,
	)
	if err != nil {
		return translateError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *categoryRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	if err != nil {
		return translateError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id=$1`
	category, err := scanCategory(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translateError(err)
	}
	return category, nil
}

func (r *categoryRepository) GetByNameAndType(ctx context.Context, name string, issueType domain.IssueType) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE LOWER(name)=LOWER($1) AND type=$2`
	category, err := scanCategory(r.db.QueryRow(ctx, query, name, issueType))
	if err != nil {
		return nil, translateError(err)
	}
	return category, nil
}

func (r *categoryRepository) List(ctx context.Context, filter CategoryFilter) ([]domain.Category, error) {
	where := &whereBuilder{}
	if !filter.IncludeInactive {
		where.add("is_active=%s", true)
	}
	if filter.Type != nil {
		where.add("type=%s", *filter.Type)
	}
	query := `SELECT ` + categoryColumns + ` FROM categories` + where.sql() + ` ORDER BY type ASC, name ASC`
	rows, err := r.db.Query(ctx, query, where.args...)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *category)
	}
	return result, rows.Err()
}

func (r *categoryRepository) AddSubcategory(ctx context.Context, id, name string) error {
	const query = `
        UPDATE categories
        SET subcategories = CASE WHEN $1 = ANY(subcategories) THEN subcategories ELSE array_append(subcategories, $1) END,
            updated_at=NOW()
        WHERE id=$2`
	return r.execOne(ctx, query, name, id)
}

func (r *categoryRepository) RemoveSubcategory(ctx context.Context, id, name string) error {
	const query = `
        UPDATE categories SET subcategories = array_remove(subcategories, $1), updated_at=NOW()
        WHERE id=$2`
	return r.execOne(ctx, query, name, id)
}

func (r *categoryRepository) execOne(ctx context.Context, query string, args ...any) error {
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return translateError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCategory(row pgx.Row) (*domain.Category, error) {
	var category domain.Category
	if err := row.Scan(
		&category.ID,
		&category.Name,
		&category.Type,
		&category.Subcategories,
		&category.IsActive,
		&category.CreatedAt,
		&category.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &category, nil
}
