package model

import "time"

// User represents an account record as stored in the `users` table.
// Two distinct booleans gate a login: IsActive is the administrative
// switch, Enabled flips true exactly once when the activation link is
// confirmed. Handlers define their own response types; these structs
// stay close to the schema.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Username     – unique login name.
//	Email        – unique email address.
//	PasswordHash – bcrypt hashed password.
//	Role         – role name (USER, EDITOR or ADMIN).
//	IsActive     – whether the account is administratively enabled.
//	Enabled      – whether the email address was verified.
//	ImageURL     – optional display image location.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64
	Username     string
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	Enabled      bool
	ImageURL     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Role names accepted in users.role.
const (
	RoleUser   = "USER"
	RoleEditor = "EDITOR"
	RoleAdmin  = "ADMIN"
)

// RefreshToken models the single row in `refresh_tokens` a user may hold.
// The table has a UNIQUE key on user_id: issuing a new token for a user
// atomically replaces the previous one, so at most one refresh session is
// live per account. The plain token value is never stored, only its
// SHA-256 hex digest.
type RefreshToken struct {
	UserID    uint64    // refresh_tokens.user_id (unique)
	TokenHash string    // refresh_tokens.token_hash
	ExpiresAt time.Time // refresh_tokens.expires_at
	CreatedAt time.Time // refresh_tokens.created_at
}
