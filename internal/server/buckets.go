package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/filecrate/internal/storage"
	"github.com/dmitrymomot/filecrate/pkg/contentstore"
)

type bucketResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Owner       string  `json:"owner"`
	Description *string `json:"description"`
	For         *string `json:"for"`
	CreatedAt   int64   `json:"created_at"`
	ExpiresAt   *int64  `json:"expires_at"`
	bucketURLs
}

func (s *Server) bucketResponse(b storage.Bucket) bucketResponse {
	return bucketResponse{
		ID:          b.ID,
		Name:        b.Name,
		Owner:       b.Owner,
		Description: b.Description,
		For:         b.Purpose,
		CreatedAt:   b.CreatedAt,
		ExpiresAt:   b.ExpiresAt,
		bucketURLs:  s.bucketURLs(b.ID),
	}
}

type fileResponse struct {
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	MIMEType  string `json:"mime_type"`
	ShortID   string `json:"short_id,omitempty"`
	CreatedAt int64  `json:"created_at"`
	fileURLs
}

func (s *Server) fileResponse(f storage.File) fileResponse {
	return fileResponse{
		Path:      f.Path,
		Size:      f.Size,
		MIMEType:  f.MIMEType,
		ShortID:   f.ShortID,
		CreatedAt: f.CreatedAt,
		fileURLs:  s.fileURLs(f.BucketID, f.Path),
	}
}

// lookupBucket fetches a bucket and maps both absence and expiry to the same
// not-found error so expired resources are indistinguishable from ones that
// never existed.
func (s *Server) lookupBucket(r *http.Request, id string) (storage.Bucket, *httpError) {
	b, err := s.db.GetBucket(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Bucket{}, errNotFound("Bucket not found",
			"This bucket does not exist or has expired.")
	}
	if err != nil {
		s.log.ErrorContext(r.Context(), "bucket lookup failed", "bucket", id, "error", err)
		return storage.Bucket{}, errInternal("Bucket lookup failed")
	}
	if b.Expired(s.now()) {
		return storage.Bucket{}, errNotFound("Bucket not found",
			"This bucket does not exist or has expired.")
	}
	return b, nil
}

func (s *Server) handleCreateBucket(w http.ResponseWriter, r *http.Request) {
	auth, authErr := s.authenticate(r)
	if authErr != nil {
		s.respondError(w, authErr)
		return
	}
	if auth.admin {
		s.respondError(w, errForbidden("Use a regular API key to create buckets, not the admin key."))
		return
	}

	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		For         string `json:"for"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, errBadRequest("Invalid JSON",
			"Request body must be valid JSON with at least a 'name' field."))
		return
	}

	name := strings.TrimSpace(body.Name)
	if name == "" {
		s.respondError(w, errBadRequest("Missing name",
			"Provide a non-empty 'name' string in the request body."))
		return
	}

	now := s.now()
	b := storage.Bucket{
		ID:        newBucketID(),
		Name:      name,
		KeyHash:   auth.keyHash,
		Owner:     auth.name,
		CreatedAt: now.Unix(),
		ExpiresAt: parseExpiry(body.ExpiresIn, now),
	}
	if d := strings.TrimSpace(body.Description); d != "" {
		b.Description = &d
	}
	if p := strings.TrimSpace(body.For); p != "" {
		b.Purpose = &p
	}

	if err := s.db.CreateBucket(r.Context(), b); err != nil {
		s.log.ErrorContext(r.Context(), "bucket create failed", "error", err)
		s.respondError(w, errInternal("Could not create bucket"))
		return
	}

	s.respondJSON(w, http.StatusCreated, s.bucketResponse(b))
}

func (s *Server) handleListBuckets(w http.ResponseWriter, r *http.Request) {
	auth, authErr := s.authenticate(r)
	if authErr != nil {
		s.respondError(w, authErr)
		return
	}

	keyHash := auth.keyHash
	if auth.admin {
		keyHash = ""
	}

	buckets, err := s.db.ListBuckets(r.Context(), keyHash, s.now().Unix())
	if err != nil {
		s.log.ErrorContext(r.Context(), "bucket list failed", "error", err)
		s.respondError(w, errInternal("Could not list buckets"))
		return
	}

	out := make([]bucketResponse, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, s.bucketResponse(b))
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"buckets": out})
}

func (s *Server) handleGetBucket(w http.ResponseWriter, r *http.Request) {
	b, lookupErr := s.lookupBucket(r, chi.URLParam(r, "id"))
	if lookupErr != nil {
		s.respondError(w, lookupErr)
		return
	}

	files, err := s.db.ListFiles(r.Context(), b.ID)
	if err != nil {
		s.log.ErrorContext(r.Context(), "file list failed", "bucket", b.ID, "error", err)
		s.respondError(w, errInternal("Could not list files"))
		return
	}

	fileOut := make([]fileResponse, 0, len(files))
	for _, f := range files {
		fileOut = append(fileOut, s.fileResponse(f))
	}

	resp := struct {
		bucketResponse
		Files []fileResponse `json:"files"`
	}{s.bucketResponse(b), fileOut}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePatchBucket(w http.ResponseWriter, r *http.Request) {
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
		s.respondError(w, errForbidden("You can only modify buckets you own."))
		return
	}

	var body struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		ExpiresIn   *string `json:"expires_in"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, errBadRequest("Invalid JSON", "Request body must be valid JSON."))
		return
	}

	changed := false
	if body.Name != nil {
		if name := strings.TrimSpace(*body.Name); name != "" {
			b.Name = name
			changed = true
		}
	}
	if body.Description != nil {
		if d := strings.TrimSpace(*body.Description); d != "" {
			b.Description = &d
		} else {
			b.Description = nil
		}
		changed = true
	}
	if body.ExpiresIn != nil {
		b.ExpiresAt = parseExpiry(*body.ExpiresIn, s.now())
		changed = true
	}

	if !changed {
		s.respondError(w, errBadRequest("No updates",
			"Provide at least one field to update: name, description, or expires_in."))
		return
	}

	if err := s.db.UpdateBucket(r.Context(), b); err != nil {
		s.log.ErrorContext(r.Context(), "bucket update failed", "bucket", b.ID, "error", err)
		s.respondError(w, errInternal("Could not update bucket"))
		return
	}

	s.respondJSON(w, http.StatusOK, s.bucketResponse(b))
}

func (s *Server) handleDeleteBucket(w http.ResponseWriter, r *http.Request) {
	auth, authErr := s.authenticate(r)
	if authErr != nil {
		s.respondError(w, authErr)
		return
	}

	id := chi.URLParam(r, "id")
	b, err := s.db.GetBucket(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, errNotFound("Bucket not found", "This bucket does not exist."))
		return
	}
	if err != nil {
		s.log.ErrorContext(r.Context(), "bucket lookup failed", "bucket", id, "error", err)
		s.respondError(w, errInternal("Bucket lookup failed"))
		return
	}
	if !auth.canManage(b) {
		s.respondError(w, errForbidden("You can only delete buckets you own."))
		return
	}

	// Content first, then metadata; see the sweeper for the ordering rationale.
	if err := s.files.DeleteBucket(r.Context(), id); err != nil {
		s.log.ErrorContext(r.Context(), "bucket content delete failed", "bucket", id, "error", err)
		s.respondError(w, errInternal("Could not delete bucket contents"))
		return
	}
	if err := s.db.DeleteBucket(r.Context(), id); err != nil {
		s.log.ErrorContext(r.Context(), "bucket metadata delete failed", "bucket", id, "error", err)
		s.respondError(w, errInternal("Could not delete bucket"))
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"deleted": true, "id": id})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
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
		s.respondError(w, errForbidden("You can only delete files from buckets you own."))
		return
	}

	var body struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, errBadRequest("Invalid JSON",
			"Request body must be valid JSON with a 'path' field."))
		return
	}

	rel, err := contentstore.CleanRelPath(body.Path)
	if err != nil {
		s.respondError(w, errBadRequest("Missing path",
			"Provide a non-empty 'path' string identifying the file to delete."))
		return
	}

	if _, err := s.db.GetFile(r.Context(), b.ID, rel.String()); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, errNotFound("File not found",
				"No file at path '"+rel.String()+"' in this bucket."))
			return
		}
		s.log.ErrorContext(r.Context(), "file lookup failed", "bucket", b.ID, "path", rel.String(), "error", err)
		s.respondError(w, errInternal("File lookup failed"))
		return
	}

	if err := s.files.DeleteFile(r.Context(), b.ID, rel); err != nil {
		s.log.ErrorContext(r.Context(), "file content delete failed", "bucket", b.ID, "path", rel.String(), "error", err)
		s.respondError(w, errInternal("Could not delete file"))
		return
	}
	if err := s.db.DeleteFile(r.Context(), b.ID, rel.String()); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.log.ErrorContext(r.Context(), "file metadata delete failed", "bucket", b.ID, "path", rel.String(), "error", err)
		s.respondError(w, errInternal("Could not delete file record"))
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"deleted": true, "path": rel.String()})
}
