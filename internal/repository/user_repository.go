package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/magline/magline/internal/model"
	"github.com/magline/magline/internal/utils"
)

// UserRepo persists user accounts.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,username,email,password_hash,role,is_active,enabled,image_url,created_at,updated_at"

// Create inserts a new, not-yet-enabled user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, username, email, password, role string, cost int) (uint64, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, role, is_active, enabled) VALUES (?,?,?,?,1,0)",
		username, email, hash, role)
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "1062") { // duplicate key
			if strings.Contains(msg, "username") {
				return 0, ErrUsernameExists
			}
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (r *UserRepo) scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role,
		&u.IsActive, &u.Enabled, &u.ImageURL, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return u, ErrUserNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByUsernameOrEmail resolves a login identifier against either unique
// column. The caller does not reveal which column matched.
func (r *UserRepo) GetByUsernameOrEmail(ctx context.Context, q string) (model.User, error) {
	q = strings.TrimSpace(q)
	return r.scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? OR email=? LIMIT 1",
		q, strings.ToLower(q)))
}

// SetEnabled marks the account's email as verified. Safe to repeat.
func (r *UserRepo) SetEnabled(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET enabled=1 WHERE id=?", id)
	return err
}

// SetActive flips the administrative switch on an account.
func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET is_active=? WHERE id=?", active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdatePassword stores a new bcrypt hash for the user.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", passwordHash, id)
	return err
}

// UpdateProfile changes the mutable public fields of the account.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, username, imageURL string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET username=?, image_url=? WHERE id=?",
		strings.TrimSpace(username), imageURL, id)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
		return ErrUsernameExists
	}
	return err
}

// Delete removes the user row. Callers are responsible for deleting the
// refresh token row first; deletion order is explicit, not a cascade.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}
