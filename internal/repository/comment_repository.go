package repository

import (
	"context"
	"database/sql"

	"github.com/magline/magline/internal/model"
)

// CommentRepo persists post comments.
type CommentRepo struct{ DB *sql.DB }

func NewCommentRepo(db *sql.DB) *CommentRepo { return &CommentRepo{DB: db} }

// Create inserts a comment and sets its ID.
func (r *CommentRepo) Create(ctx context.Context, c *model.Comment) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO comments (post_id, author_id, body) VALUES (?,?,?)",
		c.PostID, c.AuthorID, c.Body)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// GetByID fetches one comment.
func (r *CommentRepo) GetByID(ctx context.Context, id uint64) (model.Comment, error) {
	var c model.Comment
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, post_id, author_id, body, created_at, updated_at FROM comments WHERE id=? LIMIT 1",
		id).Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Body, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

// ListByPost returns the comments of a post, oldest first.
func (r *CommentRepo) ListByPost(ctx context.Context, postID uint64) ([]model.Comment, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, post_id, author_id, body, created_at, updated_at FROM comments WHERE post_id=? ORDER BY created_at",
		postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Comment
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Body, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateBody rewrites a comment's text.
func (r *CommentRepo) UpdateBody(ctx context.Context, id uint64, body string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE comments SET body=? WHERE id=?", body, id)
	return err
}

// Delete removes a comment.
func (r *CommentRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM comments WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
