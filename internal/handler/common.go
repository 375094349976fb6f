package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// paramID parses a numeric path parameter.
func paramID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// paramFromQuery parses a numeric query parameter value.
func paramFromQuery(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

// pagination reads limit/offset query parameters with sane bounds.
func pagination(c echo.Context) (limit, offset int) {
	limit = 20
	if n, err := strconv.Atoi(c.QueryParam("limit")); err == nil && n > 0 && n <= 100 {
		limit = n
	}
	if n, err := strconv.Atoi(c.QueryParam("offset")); err == nil && n >= 0 {
		offset = n
	}
	return limit, offset
}

// slugify builds a URL slug from a title: lowercase, hyphen-separated,
// ASCII letters and digits only.
func slugify(title string) string {
	var b strings.Builder
	prevDash := true // suppress leading dash
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func jsonError(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"error": msg})
}

func forbidden(c echo.Context) error {
	return jsonError(c, http.StatusForbidden, "forbidden")
}
