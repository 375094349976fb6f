package auth

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers translate it into an HTTP 403.
var ErrForbidden = errors.New("forbidden")

// Authorize decides whether the caller may mutate a resource owned by
// ownerID. It allows exactly when a non-anonymous identity matches the
// owner; anything else is denied. This is deliberately independent of the
// coarser route-level role checks: it answers "may THIS caller touch THIS
// row". Callers must run it before applying the mutation.
func Authorize(id *Identity, ownerID uint64) error {
	if id == nil || id.UserID != ownerID {
		return ErrForbidden
	}
	return nil
}
