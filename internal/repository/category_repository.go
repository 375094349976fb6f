package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/magline/magline/internal/model"
)

// CategoryRepo persists post categories.
type CategoryRepo struct{ DB *sql.DB }

func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{DB: db} }

// Create inserts a category and sets its ID.
func (r *CategoryRepo) Create(ctx context.Context, c *model.Category) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO categories (name, slug) VALUES (?,?)", c.Name, c.Slug)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// GetByID fetches one category.
func (r *CategoryRepo) GetByID(ctx context.Context, id uint64) (model.Category, error) {
	var c model.Category
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, slug FROM categories WHERE id=? LIMIT 1", id).
		Scan(&c.ID, &c.Name, &c.Slug)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

// List returns all categories ordered by name.
func (r *CategoryRepo) List(ctx context.Context) ([]model.Category, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, name, slug FROM categories ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update renames a category.
func (r *CategoryRepo) Update(ctx context.Context, c *model.Category) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE categories SET name=?, slug=? WHERE id=?", c.Name, c.Slug, c.ID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a category. Categories that still have posts cannot be
// deleted; the caller gets ErrConflict and must move the posts first.
func (r *CategoryRepo) Delete(ctx context.Context, id uint64) error {
	var n int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM posts WHERE category_id=?", id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	res, err := r.DB.ExecContext(ctx, "DELETE FROM categories WHERE id=?", id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}
