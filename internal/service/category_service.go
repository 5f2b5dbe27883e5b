package service

import (
	"context"
	"errors"
	"strings"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// CategoryService manages the ticket classification catalog.
type CategoryService struct {
	categories repository.CategoryRepository
}

// CategoryInput is the create payload.
type CategoryInput struct {
	Name          string
	Type          domain.IssueType
	Subcategories []string
}

// CategoryUpdateInput is a partial update; nil fields are left alone.
type CategoryUpdateInput struct {
	Name          *string
	Type          *domain.IssueType
	Subcategories *[]string
	IsActive      *bool
}

// CategoryListInput narrows listings.
type CategoryListInput struct {
	Type            *domain.IssueType
	IncludeInactive bool
}

// NewCategoryService constructs the service.
func NewCategoryService(categories repository.CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

// CreateCategory adds a category; (name, type) must be unique.
func (s *CategoryService) CreateCategory(ctx context.Context, actor *domain.User, input CategoryInput) (*domain.Category, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	category := &domain.Category{
		Name:          strings.TrimSpace(input.Name),
		Type:          input.Type,
		Subcategories: cleanSubcategories(input.Subcategories),
		IsActive:      true,
	}
	if err := validateCategory(category); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, category.Name, category.Type, ""); err != nil {
		return nil, err
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, categoryError(err, category)
	}
	return category, nil
}

// UpdateCategory mutates a category in place. Tickets keep the old text.
func (s *CategoryService) UpdateCategory(ctx context.Context, actor *domain.User, id string, input CategoryUpdateInput) (*domain.Category, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "category", id)
	}
	if input.Name != nil {
		category.Name = strings.TrimSpace(*input.Name)
	}
	if input.Type != nil {
		category.Type = *input.Type
	}
	if input.Subcategories != nil {
		category.Subcategories = cleanSubcategories(*input.Subcategories)
	}
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}
	if err := validateCategory(category); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, category.Name, category.Type, category.ID); err != nil {
		return nil, err
	}
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, categoryError(err, category)
	}
	return category, nil
}

// DeleteCategory removes a category without touching tickets that name it.
func (s *CategoryService) DeleteCategory(ctx context.Context, actor *domain.User, id string) error {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return err
	}
	return mapRepoError(s.categories.Delete(ctx, id), "category", id)
}

// GetCategory fetches one category.
func (s *CategoryService) GetCategory(ctx context.Context, actor *domain.User, id string) (*domain.Category, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "category", id)
	}
	if !category.IsActive && actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewNotFound("category", map[string]any{"id": id})
	}
	return category, nil
}

// ListCategories returns categories sorted by type then name. Only admins
// may include inactive entries.
func (s *CategoryService) ListCategories(ctx context.Context, actor *domain.User, input CategoryListInput) ([]domain.Category, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	if input.Type != nil && !input.Type.Valid() {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"type": "must be Hardware or Software"})
	}
	filter := repository.CategoryFilter{
		Type:            input.Type,
		IncludeInactive: input.IncludeInactive && actor.Role == domain.RoleAdmin,
	}
	categories, err := s.categories.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	return categories, nil
}

// AddSubcategory appends name unless already present.
func (s *CategoryService) AddSubcategory(ctx context.Context, actor *domain.User, id, name string) (*domain.Category, error) {
	return s.mutateSubcategory(ctx, actor, id, name, s.categories.AddSubcategory)
}

// RemoveSubcategory drops every entry equal to name.
func (s *CategoryService) RemoveSubcategory(ctx context.Context, actor *domain.User, id, name string) (*domain.Category, error) {
	return s.mutateSubcategory(ctx, actor, id, name, s.categories.RemoveSubcategory)
}

func (s *CategoryService) mutateSubcategory(ctx context.Context, actor *domain.User, id, name string, apply func(context.Context, string, string) error) (*domain.Category, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"name": "is required"})
	}
	if err := apply(ctx, id, name); err != nil {
		return nil, mapRepoError(err, "category", id)
	}
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "category", id)
	}
	return category, nil
}

func (s *CategoryService) ensureUnique(ctx context.Context, name string, issueType domain.IssueType, selfID string) error {
	existing, err := s.categories.GetByNameAndType(ctx, name, issueType)
	switch {
	case err == nil && existing.ID != selfID:
		return apperrors.NewConflict("category already exists", map[string]any{"name": name, "type": string(issueType)})
	case err == nil, errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return apperrors.MapError(err)
	}
}

func validateCategory(category *domain.Category) error {
	errs := fieldErrors{}
	errs.required("name", category.Name)
	if !category.Type.Valid() {
		errs.add("type", "must be Hardware or Software")
	}
	return errs.err()
}

// cleanSubcategories trims entries and drops blanks and duplicates, keeping order.
func cleanSubcategories(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, sub := range in {
		sub = strings.TrimSpace(sub)
		if sub == "" {
			continue
		}
		if _, ok := seen[sub]; ok {
			continue
		}
		seen[sub] = struct{}{}
		out = append(out, sub)
	}
	return out
}

func categoryError(err error, category *domain.Category) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return apperrors.NewConflict("category already exists",
			map[string]any{"name": category.Name, "type": string(category.Type)})
	}
	return mapRepoError(err, "category", category.ID)
}
