package server

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/filecrate/internal/storage"
)

const apiKeyPrefix = "cf_"

// newAPIKey generates a raw API key plus its stored representation. The raw
// key is shown once at creation; only the hash and a short prefix for display
// are persisted.
func newAPIKey() (rawKey, hash, prefix string) {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	rawKey = apiKeyPrefix + hex.EncodeToString(buf)
	sum := sha256.Sum256([]byte(rawKey))
	return rawKey, hex.EncodeToString(sum[:]), rawKey[:len(apiKeyPrefix)+8]
}

func (s *Server) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	auth, authErr := s.authenticate(r)
	if authErr != nil {
		s.respondError(w, authErr)
		return
	}
	if !auth.admin {
		s.respondError(w, errForbidden("Only admins can create API keys."))
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, errBadRequest("Invalid JSON",
			"Request body must be valid JSON with a 'name' field."))
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		s.respondError(w, errBadRequest("Missing name",
			"Provide a non-empty 'name' string for the key."))
		return
	}

	rawKey, hash, prefix := newAPIKey()
	key := storage.APIKey{
		Hash:      hash,
		Prefix:    prefix,
		Name:      name,
		CreatedAt: s.now().Unix(),
	}
	if err := s.db.CreateAPIKey(r.Context(), key); err != nil {
		s.log.ErrorContext(r.Context(), "api key create failed", "error", err)
		s.respondError(w, errInternal("Could not create API key"))
		return
	}

	s.respondJSON(w, http.StatusCreated, map[string]any{
		"key":        rawKey,
		"prefix":     prefix,
		"name":       name,
		"created_at": key.CreatedAt,
		"note":       "Store this key now. It cannot be retrieved again.",
	})
}

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	auth, authErr := s.authenticate(r)
	if authErr != nil {
		s.respondError(w, authErr)
		return
	}
	if !auth.admin {
		s.respondError(w, errForbidden("Only admins can list API keys."))
		return
	}

	keys, err := s.db.ListAPIKeys(r.Context())
	if err != nil {
		s.log.ErrorContext(r.Context(), "api key list failed", "error", err)
		s.respondError(w, errInternal("Could not list API keys"))
		return
	}

	type keyResponse struct {
		Prefix      string `json:"prefix"`
		Name        string `json:"name"`
		CreatedAt   int64  `json:"created_at"`
		LastUsedAt  int64  `json:"last_used_at"`
		BucketCount int64  `json:"bucket_count"`
	}
	out := make([]keyResponse, 0, len(keys))
	for _, k := range keys {
		out = append(out, keyResponse{
			Prefix:      k.Prefix,
			Name:        k.Name,
			CreatedAt:   k.CreatedAt,
			LastUsedAt:  k.LastUsedAt,
			BucketCount: k.BucketCount,
		})
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"keys": out})
}

func (s *Server) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	auth, authErr := s.authenticate(r)
	if authErr != nil {
		s.respondError(w, authErr)
		return
	}
	if !auth.admin {
		s.respondError(w, errForbidden("Only admins can revoke API keys."))
		return
	}

	prefix := chi.URLParam(r, "prefix")
	if _, err := s.db.GetAPIKeyByPrefix(r.Context(), prefix); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, errNotFound("Key not found",
				"No API key with prefix '"+prefix+"' exists."))
			return
		}
		s.log.ErrorContext(r.Context(), "api key lookup failed", "prefix", prefix, "error", err)
		s.respondError(w, errInternal("Key lookup failed"))
		return
	}

	if err := s.db.DeleteAPIKeyByPrefix(r.Context(), prefix); err != nil {
		s.log.ErrorContext(r.Context(), "api key delete failed", "prefix", prefix, "error", err)
		s.respondError(w, errInternal("Could not revoke key"))
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"revoked": true, "prefix": prefix})
}
