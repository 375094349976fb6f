package middleware // middleware contains reusable HTTP middleware functions

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/magline/magline/internal/auth"
	"github.com/magline/magline/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and stores the caller's identity in the request context. Only tokens
// minted with the access purpose pass: an activation or reset token
// presented here is rejected even though its signature is valid. Wrap
// protected routes with this so handlers can read auth.FromContext(c).
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims, err := utils.VerifyToken(secret, raw, utils.PurposeAccess)
			if err != nil {
				// Expired, malformed and wrong-purpose all collapse to
				// one response; the caller learns nothing extra.
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			userID, err := strconv.ParseUint(claims.Subject, 10, 64)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(auth.ContextKey, &auth.Identity{UserID: userID, Role: claims.Role})
			return next(c)
		}
	}
}
