// Package router wires HTTP routes to handlers. Role requirements are
// declared here, next to the routes they protect, so the gating of every
// endpoint is visible in one place.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/magline/magline/internal/config"
	"github.com/magline/magline/internal/handler"
	"github.com/magline/magline/internal/middleware"
	"github.com/magline/magline/internal/model"
)

// RegisterRoutes registers routes that carry no authentication at all.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints under /api/auth.
// Signin/signup are aliases kept for older clients. None of these routes
// run the JWT middleware: signout inspects the bearer itself so an
// anonymous call stays a harmless no-op instead of a 401.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/api/auth")
	g.POST("/login", a.Login)
	g.POST("/signin", a.Login)
	g.POST("/register", a.Register)
	g.POST("/signup", a.Register)
	g.POST("/confirmUser/:token", a.ConfirmUser)
	g.POST("/sendActivationRequest", a.SendActivationRequest)
	g.POST("/forgotPassword", a.ForgotPassword)
	g.POST("/changePassword/:token", a.ChangePassword)
	g.POST("/refreshToken", a.Refresh)
	g.POST("/signout", a.Signout)
}

// RegisterContent registers the content surface. Public reads get the
// Redis response cache and rate limiter; mutations run behind JWTAuth
// plus a role gate, with per-row ownership enforced inside the handlers.
func RegisterContent(
	e *echo.Echo,
	cfg config.Config,
	rdb *redis.Client,
	posts *handler.PostHandler,
	categories *handler.CategoryHandler,
	comments *handler.CommentHandler,
	playlists *handler.PlaylistHandler,
	profiles *handler.ProfileHandler,
) {
	public := e.Group("/api")
	public.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	public.Use(middleware.NewResponseCache(config.LoadCacheConfig(), rdb))
	public.GET("/posts", posts.ListPosts)
	public.GET("/posts/:id", posts.GetPost)
	public.GET("/posts/:id/comments", comments.ListComments)
	public.GET("/categories", categories.ListCategories)

	// Any authenticated account.
	user := e.Group("/api")
	user.Use(middleware.JWTAuth(cfg.JWTSecret))
	user.Use(middleware.RequireRole(model.RoleUser, model.RoleEditor, model.RoleAdmin))
	user.POST("/posts", posts.CreatePost)
	user.PUT("/posts/:id", posts.UpdatePost)
	user.DELETE("/posts/:id", posts.DeletePost)
	user.POST("/posts/:id/like", posts.LikePost)
	user.DELETE("/posts/:id/like", posts.UnlikePost)
	user.POST("/posts/:id/comments", comments.CreateComment)
	user.PUT("/comments/:id", comments.UpdateComment)
	user.DELETE("/comments/:id", comments.DeleteComment)
	user.GET("/playlists", playlists.MyPlaylists)
	user.POST("/playlists", playlists.CreatePlaylist)
	user.GET("/playlists/:id", playlists.GetPlaylist)
	user.PUT("/playlists/:id", playlists.UpdatePlaylist)
	user.DELETE("/playlists/:id", playlists.DeletePlaylist)
	user.POST("/playlists/:id/posts", playlists.AddPlaylistPost)
	user.DELETE("/playlists/:id/posts/:postId", playlists.RemovePlaylistPost)
	user.GET("/users/me", profiles.Me)
	user.PUT("/users/:id", profiles.UpdateProfile)
	user.DELETE("/users/:id", profiles.DeleteAccount)

	// Category management is for editors and admins.
	editor := e.Group("/api")
	editor.Use(middleware.JWTAuth(cfg.JWTSecret))
	editor.Use(middleware.RequireRole(model.RoleEditor, model.RoleAdmin))
	editor.POST("/categories", categories.CreateCategory)
	editor.PUT("/categories/:id", categories.UpdateCategory)
	editor.DELETE("/categories/:id", categories.DeleteCategory)

	// Administrative account switch.
	admin := e.Group("/api/admin")
	admin.Use(middleware.JWTAuth(cfg.JWTSecret))
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	admin.PUT("/users/:id/active", profiles.SetUserActive)
}
