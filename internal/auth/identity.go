// Package auth carries the request-scoped identity of the authenticated
// caller and the ownership check applied before any mutation of a
// user-owned row. The identity travels in the request context set by the
// JWT middleware; there is no process-wide "current user".
package auth

import "github.com/labstack/echo/v4"

// ContextKey is the echo context key under which the JWT middleware stores
// the caller's identity.
const ContextKey = "identity"

// Identity describes the authenticated caller as proven by the access
// token. A nil *Identity means the request is anonymous.
type Identity struct {
	UserID uint64
	Role   string
}

// FromContext returns the identity stored by the JWT middleware, or nil
// when the request is anonymous or the middleware did not run.
func FromContext(c echo.Context) *Identity {
	if id, ok := c.Get(ContextKey).(*Identity); ok {
		return id
	}
	return nil
}
