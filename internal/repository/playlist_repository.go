package repository

import (
	"context"
	"database/sql"

	"github.com/magline/magline/internal/model"
)

// PlaylistRepo persists user playlists and their ordered post entries.
type PlaylistRepo struct{ DB *sql.DB }

func NewPlaylistRepo(db *sql.DB) *PlaylistRepo { return &PlaylistRepo{DB: db} }

// Create inserts a playlist and sets its ID.
func (r *PlaylistRepo) Create(ctx context.Context, p *model.Playlist) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO playlists (owner_id, name, description) VALUES (?,?,?)",
		p.OwnerID, p.Name, p.Description)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetByID fetches one playlist.
func (r *PlaylistRepo) GetByID(ctx context.Context, id uint64) (model.Playlist, error) {
	var p model.Playlist
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, owner_id, name, description, created_at, updated_at FROM playlists WHERE id=? LIMIT 1",
		id).Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

// ListByOwner returns all playlists of a user.
func (r *PlaylistRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Playlist, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, owner_id, name, description, created_at, updated_at FROM playlists WHERE owner_id=? ORDER BY created_at",
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Playlist
	for rows.Next() {
		var p model.Playlist
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update rewrites name and description.
func (r *PlaylistRepo) Update(ctx context.Context, p *model.Playlist) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE playlists SET name=?, description=? WHERE id=?", p.Name, p.Description, p.ID)
	return err
}

// Delete removes the playlist and its entries, entries first.
func (r *PlaylistRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM playlist_posts WHERE playlist_id=?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM playlists WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// AddPost appends a post at the end of the playlist. Re-adding an existing
// entry is a no-op.
func (r *PlaylistRepo) AddPost(ctx context.Context, playlistID, postID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT IGNORE INTO playlist_posts (playlist_id, post_id, position)
		 SELECT ?, ?, COALESCE(MAX(position),0)+1 FROM playlist_posts WHERE playlist_id=?`,
		playlistID, postID, playlistID)
	return err
}

// RemovePost deletes one entry. Idempotent.
func (r *PlaylistRepo) RemovePost(ctx context.Context, playlistID, postID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM playlist_posts WHERE playlist_id=? AND post_id=?", playlistID, postID)
	return err
}

// ListPosts returns the playlist's posts in position order.
func (r *PlaylistRepo) ListPosts(ctx context.Context, playlistID uint64) ([]model.Post, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT p.id, p.author_id, p.category_id, p.title, p.slug, p.body, p.created_at, p.updated_at
		 FROM playlist_posts pp JOIN posts p ON p.id = pp.post_id
		 WHERE pp.playlist_id=? ORDER BY pp.position`, playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Post
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.CategoryID, &p.Title, &p.Slug, &p.Body,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
