package model

import "time"

// Comment is a user remark attached to a post. Only the author may edit
// or delete it.
type Comment struct {
	ID        uint64    // comments.id
	PostID    uint64    // comments.post_id
	AuthorID  uint64    // comments.author_id
	Body      string    // comments.body
	CreatedAt time.Time // comments.created_at
	UpdatedAt time.Time // comments.updated_at
}
