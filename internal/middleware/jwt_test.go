package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magline/magline/internal/auth"
	"github.com/magline/magline/internal/utils"
)

const testSecret = "mw-secret"

func runJWTAuth(t *testing.T, authorization string) (*httptest.ResponseRecorder, *auth.Identity) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var captured *auth.Identity
	next := func(c echo.Context) error {
		captured = auth.FromContext(c)
		return c.NoContent(http.StatusOK)
	}
	err := JWTAuth(testSecret)(next)(c)
	require.NoError(t, err)
	return rec, captured
}

func TestJWTAuth_ValidAccessToken(t *testing.T) {
	t.Parallel()

	tok, _, err := utils.IssueToken(testSecret, "42", utils.PurposeAccess, "EDITOR", time.Hour)
	require.NoError(t, err)

	rec, id := runJWTAuth(t, "Bearer "+tok)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, id)
	assert.Equal(t, uint64(42), id.UserID)
	assert.Equal(t, "EDITOR", id.Role)
}

func TestJWTAuth_RejectsMissingHeader(t *testing.T) {
	t.Parallel()

	rec, id := runJWTAuth(t, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, id)
}

func TestJWTAuth_RejectsNonAccessPurpose(t *testing.T) {
	t.Parallel()

	// A valid activation token must not open protected routes.
	tok, _, err := utils.IssueToken(testSecret, "someone@example.com", utils.PurposeActivation, "", time.Hour)
	require.NoError(t, err)

	rec, id := runJWTAuth(t, "Bearer "+tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, id)
}

func TestJWTAuth_RejectsExpired(t *testing.T) {
	t.Parallel()

	tok, _, err := utils.IssueToken(testSecret, "42", utils.PurposeAccess, "USER", -time.Minute)
	require.NoError(t, err)

	rec, id := runJWTAuth(t, "Bearer "+tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, id)
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	e := echo.New()
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	mw := RequireRole("EDITOR", "ADMIN")(next)

	run := func(id *auth.Identity) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if id != nil {
			c.Set(auth.ContextKey, id)
		}
		require.NoError(t, mw(c))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, run(&auth.Identity{UserID: 1, Role: "ADMIN"}))
	assert.Equal(t, http.StatusOK, run(&auth.Identity{UserID: 1, Role: "EDITOR"}))
	assert.Equal(t, http.StatusForbidden, run(&auth.Identity{UserID: 1, Role: "USER"}))
	assert.Equal(t, http.StatusForbidden, run(nil))
}
