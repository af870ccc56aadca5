package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/filecrate/internal/storage"
	"github.com/dmitrymomot/filecrate/pkg/token"
)

// handleShortLink redirects a short file alias to its canonical raw URL.
// A replaced file's old alias and an expired bucket both yield the same
// not-found response as an alias that never existed.
func (s *Server) handleShortLink(w http.ResponseWriter, r *http.Request) {
	shortID := chi.URLParam(r, "shortID")

	file, err := s.db.GetFileByShortID(r.Context(), shortID)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, errNotFound("Not found", "No file with this short ID."))
		return
	}
	if err != nil {
		s.log.ErrorContext(r.Context(), "short link lookup failed", "short_id", shortID, "error", err)
		s.respondError(w, errInternal("Short link lookup failed"))
		return
	}

	b, err := s.db.GetBucket(r.Context(), file.BucketID)
	if err != nil || b.Expired(s.now()) {
		s.respondError(w, errNotFound("Not found", "This file's bucket has expired."))
		return
	}

	http.Redirect(w, r, s.rawPath(file.BucketID, file.Path), http.StatusTemporaryRedirect)
}

// handleUploadLink mints a signed, bucket-bound upload URL for handing to
// collaborators without sharing an API key.
func (s *Server) handleUploadLink(w http.ResponseWriter, r *http.Request) {
	auth, authErr := s.authenticate(r)
	if authErr != nil {
		s.respondError(w, authErr)
		return
	}

	b, lookupErr := s.lookupBucket(r, chi.URLParam(r, "id"))
	if lookupErr != nil {
		s.respondError(w, lookupErr)
		return
	}
	if !auth.canManage(b) {
		s.respondError(w, errForbidden("You can only generate upload links for buckets you own."))
		return
	}

	expiresIn := "1h"
	var body struct {
		ExpiresIn string `json:"expires_in"`
	}
	// Absent or invalid body means defaults.
	if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.ExpiresIn != "" {
		expiresIn = body.ExpiresIn
	}

	tok := s.tokens.IssueUpload(b.ID, expiryTTL(expiresIn))

	s.respondJSON(w, http.StatusOK, map[string]any{
		"upload_url": s.baseURL + "/api/buckets/" + b.ID + "/upload?token=" + tok,
		"expires_in": expiresIn,
		"bucket": map[string]string{
			"id":   b.ID,
			"name": b.Name,
		},
	})
}

// handleDashboardLink mints a signed admin dashboard URL valid for 24 hours.
func (s *Server) handleDashboardLink(w http.ResponseWriter, r *http.Request) {
	auth, authErr := s.authenticate(r)
	if authErr != nil {
		s.respondError(w, authErr)
		return
	}
	if !auth.admin {
		s.respondError(w, errForbidden("Only admins can generate dashboard links."))
		return
	}

	tok := s.tokens.IssueDashboard(token.DefaultDashboardTTL)

	s.respondJSON(w, http.StatusOK, map[string]any{
		"url":        s.baseURL + "/admin?token=" + tok,
		"expires_in": "24h",
	})
}

// handleAdminAction executes dashboard-token-authorized administrative
// actions: revoking an API key or deleting a bucket.
func (s *Server) handleAdminAction(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token  string `json:"token"`
		Action string `json:"action"`
		Target string `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, errBadRequest("Invalid JSON", "Request body must be valid JSON."))
		return
	}
	if body.Token == "" || body.Action == "" || body.Target == "" {
		s.respondError(w, errBadRequest("Missing fields",
			"Provide token, action, and target in the request body."))
		return
	}

	if err := s.tokens.VerifyDashboard(body.Token); err != nil {
		s.respondError(w, errUnauthorized("Invalid or expired token",
			"Generate a new dashboard link."))
		return
	}

	switch body.Action {
	case "revoke_key":
		key, err := s.db.GetAPIKeyByPrefix(r.Context(), body.Target)
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, errNotFound("Key not found",
				"No API key with prefix '"+body.Target+"' exists."))
			return
		}
		if err != nil {
			s.log.ErrorContext(r.Context(), "key lookup failed", "prefix", body.Target, "error", err)
			s.respondError(w, errInternal("Key lookup failed"))
			return
		}
		if err := s.db.DeleteAPIKeyByPrefix(r.Context(), body.Target); err != nil {
			s.log.ErrorContext(r.Context(), "key revoke failed", "prefix", body.Target, "error", err)
			s.respondError(w, errInternal("Could not revoke key"))
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]any{
			"ok": true, "action": body.Action, "target": body.Target, "name": key.Name,
		})

	case "delete_bucket":
		b, err := s.db.GetBucket(r.Context(), body.Target)
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, errNotFound("Bucket not found",
				"No bucket with id '"+body.Target+"' exists."))
			return
		}
		if err != nil {
			s.log.ErrorContext(r.Context(), "bucket lookup failed", "bucket", body.Target, "error", err)
			s.respondError(w, errInternal("Bucket lookup failed"))
			return
		}
		if err := s.files.DeleteBucket(r.Context(), b.ID); err != nil {
			s.log.ErrorContext(r.Context(), "bucket content delete failed", "bucket", b.ID, "error", err)
			s.respondError(w, errInternal("Could not delete bucket contents"))
			return
		}
		if err := s.db.DeleteBucket(r.Context(), b.ID); err != nil {
			s.log.ErrorContext(r.Context(), "bucket metadata delete failed", "bucket", b.ID, "error", err)
			s.respondError(w, errInternal("Could not delete bucket"))
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]any{
			"ok": true, "action": body.Action, "target": body.Target, "name": b.Name,
		})

	default:
		s.respondError(w, errBadRequest("Invalid action",
			"Action must be 'revoke_key' or 'delete_bucket'."))
	}
}
