package model

import "time"

// Post is an article authored by a user and filed under a category.
type Post struct {
	ID         uint64    // posts.id
	AuthorID   uint64    // posts.author_id
	CategoryID uint64    // posts.category_id
	Title      string    // posts.title
	Slug       string    // posts.slug (unique)
	Body       string    // posts.body
	LikeCount  int64     // derived from post_likes, not a column
	CreatedAt  time.Time // posts.created_at
	UpdatedAt  time.Time // posts.updated_at
}
