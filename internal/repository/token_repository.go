package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/magline/magline/internal/model"
)

// TokenRepo is the authoritative store for refresh tokens. The table keeps
// at most one live row per user: user_id carries a UNIQUE key and Replace
// upserts in a single statement, so concurrent logins for the same user
// can never leave two live rows; the last writer wins.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Replace atomically rotates the user's refresh token: it inserts the new
// hash or overwrites the previous one in place.
func (r *TokenRepo) Replace(ctx context.Context, userID uint64, tokenHash string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)
		 ON DUPLICATE KEY UPDATE token_hash=VALUES(token_hash), expires_at=VALUES(expires_at)`,
		userID, tokenHash, expiresAt)
	return err
}

// FindByHash looks up a refresh token by the SHA-256 digest of its raw
// value. Matching on fixed-length digests keeps the comparison free of
// value-dependent structure. Expiry is the caller's decision so that the
// expired row can be deleted as a distinct, observable step.
func (r *TokenRepo) FindByHash(ctx context.Context, tokenHash string) (model.RefreshToken, error) {
	var t model.RefreshToken
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, token_hash, expires_at, created_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return t, ErrRefreshTokenNotFound
	}
	return t, err
}

// DeleteByHash removes a single token row. Used for fail-closed cleanup
// when a presented token turns out to be expired.
func (r *TokenRepo) DeleteByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE token_hash=?", tokenHash)
	return err
}

// DeleteForUser revokes the user's refresh session. Idempotent; used on
// signout, password reset and account deletion.
func (r *TokenRepo) DeleteForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE user_id=?", userID)
	return err
}
