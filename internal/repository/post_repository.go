package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/magline/magline/internal/model"
)

// PostRepo persists posts and their likes.
type PostRepo struct{ DB *sql.DB }

func NewPostRepo(db *sql.DB) *PostRepo { return &PostRepo{DB: db} }

const postColumns = "p.id, p.author_id, p.category_id, p.title, p.slug, p.body, p.created_at, p.updated_at"

// likeCountExpr is joined into selects so every returned post carries its
// current like count without a second round-trip.
const likeCountExpr = "(SELECT COUNT(*) FROM post_likes pl WHERE pl.post_id = p.id)"

// Create inserts a post and returns its ID.
func (r *PostRepo) Create(ctx context.Context, p *model.Post) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO posts (author_id, category_id, title, slug, body) VALUES (?,?,?,?,?)",
		p.AuthorID, p.CategoryID, p.Title, p.Slug, p.Body)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrConflict // slug taken
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

func scanPost(row *sql.Row) (model.Post, error) {
	var p model.Post
	err := row.Scan(&p.ID, &p.AuthorID, &p.CategoryID, &p.Title, &p.Slug, &p.Body,
		&p.CreatedAt, &p.UpdatedAt, &p.LikeCount)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

// GetByID fetches a post with its like count.
func (r *PostRepo) GetByID(ctx context.Context, id uint64) (model.Post, error) {
	return scanPost(r.DB.QueryRowContext(ctx,
		"SELECT "+postColumns+", "+likeCountExpr+" FROM posts p WHERE p.id=? LIMIT 1", id))
}

// List returns posts newest first, optionally filtered by category.
// categoryID == 0 means no filter.
func (r *PostRepo) List(ctx context.Context, categoryID uint64, limit, offset int) ([]model.Post, error) {
	q := "SELECT " + postColumns + ", " + likeCountExpr + " FROM posts p"
	args := []any{}
	if categoryID != 0 {
		q += " WHERE p.category_id=?"
		args = append(args, categoryID)
	}
	q += " ORDER BY p.created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Post
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.CategoryID, &p.Title, &p.Slug, &p.Body,
			&p.CreatedAt, &p.UpdatedAt, &p.LikeCount); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update rewrites the mutable fields of a post.
func (r *PostRepo) Update(ctx context.Context, p *model.Post) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE posts SET category_id=?, title=?, slug=?, body=? WHERE id=?",
		p.CategoryID, p.Title, p.Slug, p.Body, p.ID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// RowsAffected is also 0 for a no-op update; re-check existence.
		var exists int
		if err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM posts WHERE id=?", p.ID).Scan(&exists); err == sql.ErrNoRows {
			return ErrNotFound
		}
	}
	return nil
}

// Delete removes a post together with its likes and comments, in explicit
// order so nothing depends on FK cascade behavior.
func (r *PostRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM post_likes WHERE post_id=?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM comments WHERE post_id=?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM playlist_posts WHERE post_id=?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM posts WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// Like records that the user likes the post. Repeating is a no-op thanks
// to the composite primary key on (user_id, post_id).
func (r *PostRepo) Like(ctx context.Context, userID, postID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO post_likes (user_id, post_id) VALUES (?,?)", userID, postID)
	return err
}

// Unlike removes the user's like. Idempotent.
func (r *PostRepo) Unlike(ctx context.Context, userID, postID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM post_likes WHERE user_id=? AND post_id=?", userID, postID)
	return err
}
