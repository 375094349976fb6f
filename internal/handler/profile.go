package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/magline/magline/internal/auth"
	"github.com/magline/magline/internal/repository"
)

// ProfileHandler serves the authenticated user's own account plus the
// admin account switch.
type ProfileHandler struct {
	Users  *repository.UserRepo
	Tokens RefreshTokenStore
}

func NewProfileHandler(users *repository.UserRepo, tokens RefreshTokenStore) *ProfileHandler {
	return &ProfileHandler{Users: users, Tokens: tokens}
}

type profileReq struct {
	Username string `json:"username"`
	ImageURL string `json:"imageUrl"`
}
type activeReq struct {
	Active bool `json:"active"`
}

// Me handles GET /api/users/me.
func (h *ProfileHandler) Me(c echo.Context) error {
	id := auth.FromContext(c)
	if id == nil {
		return jsonError(c, http.StatusUnauthorized, "unauthorized")
	}
	u, err := h.Users.GetByID(c.Request().Context(), id.UserID)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "load user failed")
	}
	return c.JSON(http.StatusOK, summarize(u))
}

// UpdateProfile handles PUT /api/users/:id. Users edit only their own
// profile; the ownership check runs before the write.
func (h *ProfileHandler) UpdateProfile(c echo.Context) error {
	targetID, err := paramID(c, "id")
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid id")
	}
	if err := auth.Authorize(auth.FromContext(c), targetID); err != nil {
		return forbidden(c)
	}
	var req profileReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Username) == "" {
		return jsonError(c, http.StatusBadRequest, "username required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.UpdateProfile(ctx, targetID, req.Username, req.ImageURL); err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return jsonError(c, http.StatusConflict, "username already exists")
		}
		return jsonError(c, http.StatusInternalServerError, "update failed")
	}
	u, err := h.Users.GetByID(ctx, targetID)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "load user failed")
	}
	return c.JSON(http.StatusOK, summarize(u))
}

// DeleteAccount handles DELETE /api/users/:id. The refresh token row goes
// first, then the user row; the deletion order is explicit so it stays
// visible and testable.
func (h *ProfileHandler) DeleteAccount(c echo.Context) error {
	targetID, err := paramID(c, "id")
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid id")
	}
	if err := auth.Authorize(auth.FromContext(c), targetID); err != nil {
		return forbidden(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tokens.DeleteForUser(ctx, targetID); err != nil {
		return jsonError(c, http.StatusInternalServerError, "delete failed")
	}
	if err := h.Users.Delete(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return jsonError(c, http.StatusNotFound, "user not found")
		}
		return jsonError(c, http.StatusInternalServerError, "delete failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// SetUserActive handles PUT /api/admin/users/:id/active (ADMIN only; the
// route gate enforces the role). Deactivation also revokes the refresh
// token so the account loses its session immediately.
func (h *ProfileHandler) SetUserActive(c echo.Context) error {
	targetID, err := paramID(c, "id")
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid id")
	}
	var req activeReq
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.SetActive(ctx, targetID, req.Active); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return jsonError(c, http.StatusNotFound, "user not found")
		}
		return jsonError(c, http.StatusInternalServerError, "update failed")
	}
	if !req.Active {
		if err := h.Tokens.DeleteForUser(ctx, targetID); err != nil {
			return jsonError(c, http.StatusInternalServerError, "update failed")
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "account updated"})
}
