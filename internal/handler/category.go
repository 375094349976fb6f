package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/magline/magline/internal/model"
	"github.com/magline/magline/internal/repository"
)

// CategoryHandler serves category management. The routes it mutates are
// registered behind the EDITOR/ADMIN role gate; categories have no single
// owner, so there is no per-row ownership check here.
type CategoryHandler struct {
	Categories *repository.CategoryRepo
}

func NewCategoryHandler(categories *repository.CategoryRepo) *CategoryHandler {
	return &CategoryHandler{Categories: categories}
}

type categoryReq struct {
	Name string `json:"name"`
}

// ListCategories handles GET /api/categories (public).
func (h *CategoryHandler) ListCategories(c echo.Context) error {
	items, err := h.Categories.List(c.Request().Context())
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "db error")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// CreateCategory handles POST /api/categories.
func (h *CategoryHandler) CreateCategory(c echo.Context) error {
	var req categoryReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return jsonError(c, http.StatusBadRequest, "name required")
	}
	name := strings.TrimSpace(req.Name)
	cat := &model.Category{Name: name, Slug: slugify(name)}
	if err := h.Categories.Create(c.Request().Context(), cat); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return jsonError(c, http.StatusConflict, "category already exists")
		}
		return jsonError(c, http.StatusInternalServerError, "could not create category")
	}
	return c.JSON(http.StatusCreated, cat)
}

// UpdateCategory handles PUT /api/categories/:id.
func (h *CategoryHandler) UpdateCategory(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid id")
	}
	var req categoryReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return jsonError(c, http.StatusBadRequest, "name required")
	}
	name := strings.TrimSpace(req.Name)
	cat := &model.Category{ID: id, Name: name, Slug: slugify(name)}
	if err := h.Categories.Update(c.Request().Context(), cat); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return jsonError(c, http.StatusNotFound, "category not found")
		case errors.Is(err, repository.ErrConflict):
			return jsonError(c, http.StatusConflict, "category already exists")
		}
		return jsonError(c, http.StatusInternalServerError, "update failed")
	}
	return c.JSON(http.StatusOK, cat)
}

// DeleteCategory handles DELETE /api/categories/:id. A category that
// still has posts cannot be removed.
func (h *CategoryHandler) DeleteCategory(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid id")
	}
	if err := h.Categories.Delete(c.Request().Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return jsonError(c, http.StatusNotFound, "category not found")
		case errors.Is(err, repository.ErrConflict):
			return jsonError(c, http.StatusConflict, "category still has posts")
		}
		return jsonError(c, http.StatusInternalServerError, "delete failed")
	}
	return c.NoContent(http.StatusNoContent)
}
