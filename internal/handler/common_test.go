package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Hello World":            "hello-world",
		"  Trimmed  Title  ":     "trimmed-title",
		"Go 1.24 Release Notes!": "go-1-24-release-notes",
		"---":                    "",
		"Ünïcode stays out":      "ncode-stays-out",
	}
	for in, want := range cases {
		assert.Equal(t, want, slugify(in), in)
	}
}

func TestPagination(t *testing.T) {
	t.Parallel()

	e := echo.New()
	run := func(query string) (int, int) {
		req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
		c := e.NewContext(req, httptest.NewRecorder())
		return pagination(c)
	}

	limit, offset := run("")
	assert.Equal(t, 20, limit)
	assert.Equal(t, 0, offset)

	limit, offset = run("limit=50&offset=10")
	assert.Equal(t, 50, limit)
	assert.Equal(t, 10, offset)

	// Out-of-range values fall back to the defaults.
	limit, offset = run("limit=9999&offset=-5")
	assert.Equal(t, 20, limit)
	assert.Equal(t, 0, offset)

	limit, _ = run("limit=abc")
	assert.Equal(t, 20, limit)
}
