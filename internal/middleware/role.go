package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/magline/magline/internal/auth"
)

// RequireRole enforces that the authenticated caller holds one of the
// given roles. It is a coarse route-group gate composed at registration
// time; per-row ownership stays an explicit auth.Authorize call inside
// the handler, because it needs the specific resource, not the route.
// Assumes JWTAuth ran earlier in the chain.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := auth.FromContext(c)
			if id == nil || !allowed[id.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
