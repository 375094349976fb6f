package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/magline/magline/internal/auth"
	"github.com/magline/magline/internal/model"
	"github.com/magline/magline/internal/repository"
)

// PostHandler serves the post CRUD and like endpoints. Reads are public;
// every mutation checks ownership against the acting identity before
// touching the row.
type PostHandler struct {
	Posts      *repository.PostRepo
	Categories *repository.CategoryRepo
}

func NewPostHandler(posts *repository.PostRepo, categories *repository.CategoryRepo) *PostHandler {
	return &PostHandler{Posts: posts, Categories: categories}
}

type postReq struct {
	CategoryID uint64 `json:"categoryId"`
	Title      string `json:"title"`
	Body       string `json:"body"`
}

func (h *PostHandler) bindPost(c echo.Context) (postReq, error) {
	var req postReq
	if err := c.Bind(&req); err != nil {
		return req, errors.New("invalid body")
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || strings.TrimSpace(req.Body) == "" || req.CategoryID == 0 {
		return req, errors.New("categoryId/title/body required")
	}
	return req, nil
}

// CreatePost handles POST /api/posts.
func (h *PostHandler) CreatePost(c echo.Context) error {
	id := auth.FromContext(c)
	if id == nil {
		return jsonError(c, http.StatusUnauthorized, "unauthorized")
	}
	req, err := h.bindPost(c)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Categories.GetByID(ctx, req.CategoryID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return jsonError(c, http.StatusBadRequest, "unknown category")
		}
		return jsonError(c, http.StatusInternalServerError, "db error")
	}

	post := &model.Post{
		AuthorID:   id.UserID,
		CategoryID: req.CategoryID,
		Title:      req.Title,
		Slug:       slugify(req.Title),
		Body:       req.Body,
	}
	if err := h.Posts.Create(ctx, post); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return jsonError(c, http.StatusConflict, "a post with this title already exists")
		}
		return jsonError(c, http.StatusInternalServerError, "could not create post")
	}
	return c.JSON(http.StatusCreated, post)
}

// GetPost handles GET /api/posts/:id (public).
func (h *PostHandler) GetPost(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid id")
	}
	post, err := h.Posts.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return jsonError(c, http.StatusNotFound, "post not found")
		}
		return jsonError(c, http.StatusInternalServerError, "db error")
	}
	return c.JSON(http.StatusOK, post)
}

// ListPosts handles GET /api/posts (public), optionally filtered with
// ?category=<id>.
func (h *PostHandler) ListPosts(c echo.Context) error {
	limit, offset := pagination(c)
	var categoryID uint64
	if s := c.QueryParam("category"); s != "" {
		var err error
		if categoryID, err = paramFromQuery(s); err != nil {
			return jsonError(c, http.StatusBadRequest, "invalid category")
		}
	}
	items, err := h.Posts.List(c.Request().Context(), categoryID, limit, offset)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "db error")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// UpdatePost handles PUT /api/posts/:id. Only the author may update.
func (h *PostHandler) UpdatePost(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid id")
	}
	req, err := h.bindPost(c)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	post, err := h.Posts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return jsonError(c, http.StatusNotFound, "post not found")
		}
		return jsonError(c, http.StatusInternalServerError, "db error")
	}
	if err := auth.Authorize(auth.FromContext(c), post.AuthorID); err != nil {
		return forbidden(c)
	}

	post.CategoryID = req.CategoryID
	post.Title = req.Title
	post.Slug = slugify(req.Title)
	post.Body = req.Body
	if err := h.Posts.Update(ctx, &post); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return jsonError(c, http.StatusConflict, "a post with this title already exists")
		}
		return jsonError(c, http.StatusInternalServerError, "update failed")
	}
	return c.JSON(http.StatusOK, post)
}

// DeletePost handles DELETE /api/posts/:id. Only the author may delete.
func (h *PostHandler) DeletePost(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	post, err := h.Posts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return jsonError(c, http.StatusNotFound, "post not found")
		}
		return jsonError(c, http.StatusInternalServerError, "db error")
	}
	if err := auth.Authorize(auth.FromContext(c), post.AuthorID); err != nil {
		return forbidden(c)
	}
	if err := h.Posts.Delete(ctx, id); err != nil {
		return jsonError(c, http.StatusInternalServerError, "delete failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// LikePost handles POST /api/posts/:id/like. Liking twice is a no-op.
func (h *PostHandler) LikePost(c echo.Context) error {
	return h.setLike(c, true)
}

// UnlikePost handles DELETE /api/posts/:id/like.
func (h *PostHandler) UnlikePost(c echo.Context) error {
	return h.setLike(c, false)
}

func (h *PostHandler) setLike(c echo.Context, like bool) error {
	id := auth.FromContext(c)
	if id == nil {
		return jsonError(c, http.StatusUnauthorized, "unauthorized")
	}
	postID, err := paramID(c, "id")
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Posts.GetByID(ctx, postID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return jsonError(c, http.StatusNotFound, "post not found")
		}
		return jsonError(c, http.StatusInternalServerError, "db error")
	}
	if like {
		err = h.Posts.Like(ctx, id.UserID, postID)
	} else {
		err = h.Posts.Unlike(ctx, id.UserID, postID)
	}
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "db error")
	}
	return c.NoContent(http.StatusNoContent)
}
