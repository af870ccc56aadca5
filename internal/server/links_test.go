package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortLink(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	seedBucket(t, e, "bucket0001", nil)
	f := seedFile(t, e, "bucket0001", "dir/report file.pdf", "%PDF-fake")

	rec := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/s/"+f.ShortID, nil))

	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/raw/bucket0001/dir/report%20file.pdf", rec.Header().Get("Location"))
}

func TestShortLink_NotFound(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	rec := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/s/nosuchid1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestShortLink_ExpiredBucket(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	expiresAt := e.clock.Now().Add(time.Hour).Unix()
	seedBucket(t, e, "bucket0001", &expiresAt)
	f := seedFile(t, e, "bucket0001", "a.txt", "x")

	e.clock.Advance(2 * time.Hour)

	rec := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/s/"+f.ShortID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadLink(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	key := e.seedKey(t, "alice")
	created := createBucket(t, e, key, map[string]any{"name": "b"})
	id := created["id"].(string)

	rec := doJSON(t, e, http.MethodPost, "/api/buckets/"+id+"/upload-link", key,
		map[string]any{"expires_in": "6h"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "/api/buckets/"+id+"/upload?token=")

	// A stranger's key is refused.
	otherKey := e.seedKey(t, "mallory")
	rec = doJSON(t, e, http.MethodPost, "/api/buckets/"+id+"/upload-link", otherKey, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDashboardLink_AdminOnly(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	key := e.seedKey(t, "alice")

	rec := doJSON(t, e, http.MethodGet, "/api/admin/dashboard-link", testAdminKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/admin?token=")

	rec = doJSON(t, e, http.MethodGet, "/api/admin/dashboard-link", key, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminAction_RevokeKey(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	key := e.seedKey(t, "victim")
	tok := e.srv.tokens.IssueDashboard(time.Hour)

	prefix := key[:len(apiKeyPrefix)+8]
	rec := doJSON(t, e, http.MethodPost, "/api/admin/action", "",
		map[string]any{"token": tok, "action": "revoke_key", "target": prefix})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The revoked key no longer authenticates.
	rec = doJSON(t, e, http.MethodGet, "/api/buckets", key, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminAction_DeleteBucket(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	seedBucket(t, e, "bucket0001", nil)
	seedFile(t, e, "bucket0001", "a.txt", "x")
	tok := e.srv.tokens.IssueDashboard(time.Hour)

	rec := doJSON(t, e, http.MethodPost, "/api/admin/action", "",
		map[string]any{"token": tok, "action": "delete_bucket", "target": "bucket0001"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, e, http.MethodGet, "/api/buckets/bucket0001", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminAction_Rejections(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	validTok := e.srv.tokens.IssueDashboard(time.Hour)

	expiredTok := e.srv.tokens.IssueDashboard(time.Minute)
	e.clock.Advance(2 * time.Minute)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"expired token", map[string]any{"token": expiredTok, "action": "revoke_key", "target": "x"}, http.StatusUnauthorized},
		{"tampered token", map[string]any{"token": "bm90LXZhbGlk", "action": "revoke_key", "target": "x"}, http.StatusUnauthorized},
		{"unknown action", map[string]any{"token": validTok, "action": "explode", "target": "x"}, http.StatusBadRequest},
		{"missing target", map[string]any{"token": validTok, "action": "revoke_key"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, e, http.MethodPost, "/api/admin/action", "", tt.body)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
