package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummary(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	seedBucket(t, e, "bucket0001", nil)
	seedFile(t, e, "bucket0001", "README.md", "# Project\nNotes here.\n")
	seedFile(t, e, "bucket0001", "assets/logo.png", "pngbytes")

	rec := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/buckets/bucket0001/summary", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	body := rec.Body.String()
	assert.Contains(t, body, "# test bucket")
	assert.Contains(t, body, "Owner: tester")
	assert.Contains(t, body, "Files: 2")
	assert.Contains(t, body, "## File Listing")
	assert.Contains(t, body, "README.md")
	assert.Contains(t, body, "assets/logo.png")
	assert.Contains(t, body, "## README.md")
	assert.Contains(t, body, "Notes here.")
}

func TestSummary_NoReadme(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	seedBucket(t, e, "bucket0001", nil)
	seedFile(t, e, "bucket0001", "data.csv", "a,b\n1,2\n")

	rec := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/buckets/bucket0001/summary", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "## README.md")
}

func TestHumanSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0 B", humanSize(0))
	assert.Equal(t, "512 B", humanSize(512))
	assert.Equal(t, "1.0 KiB", humanSize(1024))
	assert.Equal(t, "1.5 MiB", humanSize(3*1024*1024/2))
	assert.Equal(t, "2.0 GiB", humanSize(2*1024*1024*1024))
}

func TestSummary_MissingBucket(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	rec := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/buckets/nosuchbkt1/summary", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
}
