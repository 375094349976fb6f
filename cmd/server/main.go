package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/magline/magline/internal/config"
	"github.com/magline/magline/internal/database"
	"github.com/magline/magline/internal/handler"
	"github.com/magline/magline/internal/notifier"
	"github.com/magline/magline/internal/queue"
	"github.com/magline/magline/internal/repository"
	"github.com/magline/magline/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	rdb := config.NewRedisClient() // nil disables cache + rate limiting

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	posts := repository.NewPostRepo(db)
	categories := repository.NewCategoryRepo(db)
	comments := repository.NewCommentRepo(db)
	playlists := repository.NewPlaylistRepo(db)

	notify := notifier.New()

	authH := handler.NewAuthHandler(cfg, users, tokens, notify)
	postH := handler.NewPostHandler(posts, categories)
	categoryH := handler.NewCategoryHandler(categories)
	commentH := handler.NewCommentHandler(comments, posts)
	playlistH := handler.NewPlaylistHandler(playlists, posts)
	profileH := handler.NewProfileHandler(users, tokens)

	// Drain notification events in the background; the loop reconnects on
	// broker failure and never takes the server down.
	go func() {
		if err := queue.StartNotificationConsumer(); err != nil {
			log.Printf("notification consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH)
	router.RegisterContent(e, cfg, rdb, postH, categoryH, commentH, playlistH, profileH)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
