package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateCategoryRequest payload.
type CreateCategoryRequest struct {
	Name          string           `json:"name"`
	Type          domain.IssueType `json:"type"`
	Subcategories []string         `json:"subcategories"`
}

// UpdateCategoryRequest payload; omitted fields are left unchanged.
type UpdateCategoryRequest struct {
	Name          *string           `json:"name"`
	Type          *domain.IssueType `json:"type"`
	Subcategories *[]string         `json:"subcategories"`
	IsActive      *bool             `json:"isActive"`
}

// SubcategoryRequest payload.
type SubcategoryRequest struct {
	Name string `json:"name"`
}

// CategoryResponse is the category representation.
type CategoryResponse struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Type          domain.IssueType `json:"type"`
	Subcategories []string         `json:"subcategories"`
	IsActive      bool             `json:"isActive"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// NewCategoryResponse maps a category to its wire form.
func NewCategoryResponse(category *domain.Category) CategoryResponse {
	return CategoryResponse{
		ID:            category.ID,
		Name:          category.Name,
		Type:          category.Type,
		Subcategories: nonNil(category.Subcategories),
		IsActive:      category.IsActive,
		CreatedAt:     category.CreatedAt,
		UpdatedAt:     category.UpdatedAt,
	}
}

// NewCategoryResponses maps a slice of categories.
func NewCategoryResponses(categories []domain.Category) []CategoryResponse {
	out := make([]CategoryResponse, 0, len(categories))
	for i := range categories {
		out = append(out, NewCategoryResponse(&categories[i]))
	}
	return out
}
