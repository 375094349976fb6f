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

// PlaylistHandler serves user playlists. Every operation except creation
// loads the playlist first and checks ownership before acting.
type PlaylistHandler struct {
	Playlists *repository.PlaylistRepo
	Posts     *repository.PostRepo
}

func NewPlaylistHandler(playlists *repository.PlaylistRepo, posts *repository.PostRepo) *PlaylistHandler {
	return &PlaylistHandler{Playlists: playlists, Posts: posts}
}

type playlistReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
type playlistItemReq struct {
	PostID uint64 `json:"postId"`
}

// ownedPlaylist loads a playlist and verifies the caller owns it. When
// it returns ok=false the error response has already been written.
func (h *PlaylistHandler) ownedPlaylist(ctx context.Context, c echo.Context) (model.Playlist, bool) {
	id, err := paramID(c, "id")
	if err != nil {
		_ = jsonError(c, http.StatusBadRequest, "invalid id")
		return model.Playlist{}, false
	}
	p, err := h.Playlists.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = jsonError(c, http.StatusNotFound, "playlist not found")
		} else {
			_ = jsonError(c, http.StatusInternalServerError, "db error")
		}
		return model.Playlist{}, false
	}
	if err := auth.Authorize(auth.FromContext(c), p.OwnerID); err != nil {
		_ = forbidden(c)
		return model.Playlist{}, false
	}
	return p, true
}

// CreatePlaylist handles POST /api/playlists.
func (h *PlaylistHandler) CreatePlaylist(c echo.Context) error {
	id := auth.FromContext(c)
	if id == nil {
		return jsonError(c, http.StatusUnauthorized, "unauthorized")
	}
	var req playlistReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return jsonError(c, http.StatusBadRequest, "name required")
	}
	p := &model.Playlist{OwnerID: id.UserID, Name: strings.TrimSpace(req.Name), Description: req.Description}
	if err := h.Playlists.Create(c.Request().Context(), p); err != nil {
		return jsonError(c, http.StatusInternalServerError, "could not create playlist")
	}
	return c.JSON(http.StatusCreated, p)
}

// MyPlaylists handles GET /api/playlists.
func (h *PlaylistHandler) MyPlaylists(c echo.Context) error {
	id := auth.FromContext(c)
	if id == nil {
		return jsonError(c, http.StatusUnauthorized, "unauthorized")
	}
	items, err := h.Playlists.ListByOwner(c.Request().Context(), id.UserID)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "db error")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetPlaylist handles GET /api/playlists/:id, returning the playlist and
// its posts in order.
func (h *PlaylistHandler) GetPlaylist(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, ok := h.ownedPlaylist(ctx, c)
	if !ok {
		return nil
	}
	posts, err := h.Playlists.ListPosts(ctx, p.ID)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "db error")
	}
	return c.JSON(http.StatusOK, echo.Map{"playlist": p, "posts": posts})
}

// UpdatePlaylist handles PUT /api/playlists/:id.
func (h *PlaylistHandler) UpdatePlaylist(c echo.Context) error {
	var req playlistReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return jsonError(c, http.StatusBadRequest, "name required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, ok := h.ownedPlaylist(ctx, c)
	if !ok {
		return nil
	}
	p.Name = strings.TrimSpace(req.Name)
	p.Description = req.Description
	if err := h.Playlists.Update(ctx, &p); err != nil {
		return jsonError(c, http.StatusInternalServerError, "update failed")
	}
	return c.JSON(http.StatusOK, p)
}

// DeletePlaylist handles DELETE /api/playlists/:id.
func (h *PlaylistHandler) DeletePlaylist(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, ok := h.ownedPlaylist(ctx, c)
	if !ok {
		return nil
	}
	if err := h.Playlists.Delete(ctx, p.ID); err != nil {
		return jsonError(c, http.StatusInternalServerError, "delete failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// AddPlaylistPost handles POST /api/playlists/:id/posts.
func (h *PlaylistHandler) AddPlaylistPost(c echo.Context) error {
	var req playlistItemReq
	if err := c.Bind(&req); err != nil || req.PostID == 0 {
		return jsonError(c, http.StatusBadRequest, "postId required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, ok := h.ownedPlaylist(ctx, c)
	if !ok {
		return nil
	}
	if _, err := h.Posts.GetByID(ctx, req.PostID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return jsonError(c, http.StatusNotFound, "post not found")
		}
		return jsonError(c, http.StatusInternalServerError, "db error")
	}
	if err := h.Playlists.AddPost(ctx, p.ID, req.PostID); err != nil {
		return jsonError(c, http.StatusInternalServerError, "db error")
	}
	return c.NoContent(http.StatusNoContent)
}

// RemovePlaylistPost handles DELETE /api/playlists/:id/posts/:postId.
func (h *PlaylistHandler) RemovePlaylistPost(c echo.Context) error {
	postID, err := paramID(c, "postId")
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid postId")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, ok := h.ownedPlaylist(ctx, c)
	if !ok {
		return nil
	}
	if err := h.Playlists.RemovePost(ctx, p.ID, postID); err != nil {
		return jsonError(c, http.StatusInternalServerError, "db error")
	}
	return c.NoContent(http.StatusNoContent)
}
