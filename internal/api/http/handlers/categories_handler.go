package handlers

import (
	"net/http"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
)

// CategoriesHandler exposes the category catalog.
type CategoriesHandler struct {
	categories *service.CategoryService
}

// NewCategoriesHandler constructs handler.
func NewCategoriesHandler(categoryService *service.CategoryService) *CategoriesHandler {
	return &CategoriesHandler{categories: categoryService}
}

// List handles GET /api/categories.
func (h *CategoriesHandler) List(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	input := service.CategoryListInput{IncludeInactive: c.QueryBool("includeInactive")}
	if issueType := parseOptionalString(c, "type"); issueType != nil {
		t := domain.IssueType(*issueType)
		input.Type = &t
	}
	categories, err := h.categories.ListCategories(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", dto.NewCategoryResponses(categories))
}

// Get handles GET /api/categories/:id.
func (h *CategoriesHandler) Get(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	category, err := h.categories.GetCategory(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", dto.NewCategoryResponse(category))
}

// Create handles POST /api/categories.
func (h *CategoriesHandler) Create(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateCategoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	category, err := h.categories.CreateCategory(c.UserContext(), actor, service.CategoryInput{
		Name:          req.Name,
		Type:          req.Type,
		Subcategories: req.Subcategories,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Category created", dto.NewCategoryResponse(category))
}

// Update handles PATCH /api/categories/:id.
func (h *CategoriesHandler) Update(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateCategoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	category, err := h.categories.UpdateCategory(c.UserContext(), actor, c.Params("id"), service.CategoryUpdateInput{
		Name:          req.Name,
		Type:          req.Type,
		Subcategories: req.Subcategories,
		IsActive:      req.IsActive,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Category updated", dto.NewCategoryResponse(category))
}

// Delete handles DELETE /api/categories/:id.
func (h *CategoriesHandler) Delete(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.categories.DeleteCategory(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Category deleted", nil)
}

// AddSubcategory handles POST /api/categories/:id/subcategories.
func (h *CategoriesHandler) AddSubcategory(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.SubcategoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	category, err := h.categories.AddSubcategory(c.UserContext(), actor, c.Params("id"), req.Name)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Subcategory added", dto.NewCategoryResponse(category))
}

// RemoveSubcategory handles DELETE /api/categories/:id/subcategories/:name.
func (h *CategoriesHandler) RemoveSubcategory(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil {
		name = c.Params("name")
	}
	category, err := h.categories.RemoveSubcategory(c.UserContext(), actor, c.Params("id"), name)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Subcategory removed", dto.NewCategoryResponse(category))
}
