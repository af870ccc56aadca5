package server

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrymomot/filecrate/internal/storage"
)

// authInfo identifies the caller: either the administrator or a named API key.
type authInfo struct {
	admin   bool
	keyHash string
	name    string
}

// authenticate resolves the Authorization header to an authInfo. The admin
// key is compared in constant time; anything else is hashed and looked up in
// the key table, which bumps last_used_at as a side effect.
func (s *Server) authenticate(r *http.Request) (authInfo, *httpError) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return authInfo{}, errUnauthorized("Missing authentication",
			"Include an Authorization: Bearer <key> header.")
	}
	rawKey := strings.TrimPrefix(header, "Bearer ")

	if s.adminKey == "" {
		return authInfo{}, &httpError{Status: http.StatusInternalServerError,
			Msg: "Server misconfigured", Hint: "Admin API key not set."}
	}

	if len(rawKey) == len(s.adminKey) &&
		subtle.ConstantTimeCompare([]byte(rawKey), []byte(s.adminKey)) == 1 {
		return authInfo{admin: true}, nil
	}

	sum := sha256.Sum256([]byte(rawKey))
	hash := hex.EncodeToString(sum[:])

	key, err := s.db.TouchAPIKey(r.Context(), hash, s.now().Unix())
	if errors.Is(err, storage.ErrNotFound) {
		return authInfo{}, errUnauthorized("Invalid API key",
			"Check your API key. It may have been revoked.")
	}
	if err != nil {
		s.log.ErrorContext(r.Context(), "api key lookup failed", "error", err)
		return authInfo{}, errInternal("Authentication unavailable")
	}

	return authInfo{keyHash: key.Hash, name: key.Name}, nil
}

// canManage reports whether the caller may mutate the given bucket.
func (a authInfo) canManage(b storage.Bucket) bool {
	return a.admin || a.keyHash == b.KeyHash
}
