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

// CommentHandler serves comments on posts. Editing and deleting are
// restricted to the comment's author via the ownership guard.
type CommentHandler struct {
	Comments *repository.CommentRepo
	Posts    *repository.PostRepo
}

func NewCommentHandler(comments *repository.CommentRepo, posts *repository.PostRepo) *CommentHandler {
	return &CommentHandler{Comments: comments, Posts: posts}
}

type commentReq struct {
	Body string `json:"body"`
}

// ListComments handles GET /api/posts/:id/comments (public).
func (h *CommentHandler) ListComments(c echo.Context) error {
	postID, err := paramID(c, "id")
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid id")
	}
	items, err := h.Comments.ListByPost(c.Request().Context(), postID)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "db error")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// CreateComment handles POST /api/posts/:id/comments.
func (h *CommentHandler) CreateComment(c echo.Context) error {
	id := auth.FromContext(c)
	if id == nil {
		return jsonError(c, http.StatusUnauthorized, "unauthorized")
	}
	postID, err := paramID(c, "id")
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid id")
	}
	var req commentReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Body) == "" {
		return jsonError(c, http.StatusBadRequest, "body required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Posts.GetByID(ctx, postID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return jsonError(c, http.StatusNotFound, "post not found")
		}
		return jsonError(c, http.StatusInternalServerError, "db error")
	}

	comment := &model.Comment{PostID: postID, AuthorID: id.UserID, Body: strings.TrimSpace(req.Body)}
	if err := h.Comments.Create(ctx, comment); err != nil {
		return jsonError(c, http.StatusInternalServerError, "could not create comment")
	}
	return c.JSON(http.StatusCreated, comment)
}

// UpdateComment handles PUT /api/comments/:id.
func (h *CommentHandler) UpdateComment(c echo.Context) error {
	commentID, err := paramID(c, "id")
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid id")
	}
	var req commentReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Body) == "" {
		return jsonError(c, http.StatusBadRequest, "body required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	comment, err := h.Comments.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return jsonError(c, http.StatusNotFound, "comment not found")
		}
		return jsonError(c, http.StatusInternalServerError, "db error")
	}
	if err := auth.Authorize(auth.FromContext(c), comment.AuthorID); err != nil {
		return forbidden(c)
	}
	if err := h.Comments.UpdateBody(ctx, commentID, strings.TrimSpace(req.Body)); err != nil {
		return jsonError(c, http.StatusInternalServerError, "update failed")
	}
	comment.Body = strings.TrimSpace(req.Body)
	return c.JSON(http.StatusOK, comment)
}

// DeleteComment handles DELETE /api/comments/:id.
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	commentID, err := paramID(c, "id")
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	comment, err := h.Comments.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return jsonError(c, http.StatusNotFound, "comment not found")
		}
		return jsonError(c, http.StatusInternalServerError, "db error")
	}
	if err := auth.Authorize(auth.FromContext(c), comment.AuthorID); err != nil {
		return forbidden(c)
	}
	if err := h.Comments.Delete(ctx, commentID); err != nil {
		return jsonError(c, http.StatusInternalServerError, "delete failed")
	}
	return c.NoContent(http.StatusNoContent)
}
