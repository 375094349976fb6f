// Package repository defines the data access layer. Sentinel errors live
// here so handlers can distinguish failure scenarios without inspecting
// driver error strings. For example ErrRefreshTokenNotFound maps to a 401
// re-authentication demand, while ErrConflict signals that a delete cannot
// proceed because dependent rows still exist.
package repository

import "errors"

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailExists and ErrUsernameExists flag unique-key violations
	// on registration.
	ErrEmailExists    = errors.New("email already exists")
	ErrUsernameExists = errors.New("username already exists")

	// ErrRefreshTokenNotFound is returned when no stored refresh token
	// matches the presented value. Callers must force re-authentication.
	ErrRefreshTokenNotFound = errors.New("refresh token not found")

	// ErrNotFound covers content rows (posts, categories, comments,
	// playlists) that do not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an operation cannot proceed due to
	// conflicting state, e.g. deleting a category that still has posts.
	ErrConflict = errors.New("conflict")
)
