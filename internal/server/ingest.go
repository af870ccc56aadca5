package server

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/encoding/charmap"

	"github.com/dmitrymomot/filecrate/internal/storage"
	"github.com/dmitrymomot/filecrate/pkg/contentstore"
)

// genericFieldNames are multipart field names that mean "store under the
// client-provided filename". Any other field name is itself the destination
// path, letting one request place many files precisely.
var genericFieldNames = map[string]bool{
	"file":    true,
	"files":   true,
	"upload":  true,
	"uploads": true,
	"blob":    true,
}

// mimeOverrides corrects extensions the stdlib table misdetects; .ts is
// MPEG-2 transport stream there, not TypeScript.
var mimeOverrides = map[string]string{
	".ts":  "text/typescript",
	".tsx": "text/typescript-jsx",
	".mts": "text/typescript",
	".cts": "text/typescript",
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	b, lookupErr := s.lookupBucket(r, chi.URLParam(r, "id"))
	if lookupErr != nil {
		s.respondError(w, lookupErr)
		return
	}

	if authErr := s.authorizeUpload(r, b); authErr != nil {
		s.respondError(w, authErr)
		return
	}

	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		s.respondError(w, errBadRequest("Invalid content type",
			"Request must be multipart/form-data."))
		return
	}
	boundary := params["boundary"]
	if boundary == "" {
		s.respondError(w, errBadRequest("Invalid content type",
			"Multipart boundary missing."))
		return
	}

	uploaded, ingestErr := s.ingest(r, b.ID, multipart.NewReader(r.Body, boundary))
	if ingestErr != nil {
		s.respondError(w, ingestErr)
		return
	}
	if len(uploaded) == 0 {
		s.respondError(w, errBadRequest("No files uploaded",
			"Include at least one file field in the multipart form data."))
		return
	}

	s.respondJSON(w, http.StatusCreated, map[string]any{"uploaded": uploaded})
}

// authorizeUpload accepts either an owner/admin API key or a signed upload
// token bound to this bucket. A token minted for another bucket is rejected
// even when otherwise valid.
func (s *Server) authorizeUpload(r *http.Request, b storage.Bucket) *httpError {
	if tok := r.URL.Query().Get("token"); tok != "" {
		bucketID, err := s.tokens.VerifyUpload(tok)
		if err != nil {
			return errUnauthorized("Invalid or expired upload token",
				"Request a fresh upload link for this bucket.")
		}
		if bucketID != b.ID {
			return errForbidden("This upload token is for a different bucket.")
		}
		return nil
	}

	auth, authErr := s.authenticate(r)
	if authErr != nil {
		return authErr
	}
	if !auth.canManage(b) {
		return errForbidden("You can only upload to buckets you own.")
	}
	return nil
}

// ingest streams every part directly to the content store and upserts its
// metadata record. Skipped parts are drained so the multipart reader is
// always fully consumed.
func (s *Server) ingest(r *http.Request, bucketID string, mr *multipart.Reader) ([]fileResponse, *httpError) {
	var uploaded []fileResponse
	now := s.now().Unix()

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return uploaded, nil
		}
		if err != nil {
			return nil, errBadRequest("Invalid form data",
				"Failed to parse multipart form data.")
		}

		if part.FileName() == "" {
			// Plain form value, not a file part.
			drain(part)
			continue
		}

		rel, ok := destinationPath(part.FormName(), part.FileName())
		if !ok {
			drain(part)
			continue
		}

		size, err := s.files.Put(r.Context(), bucketID, rel, part)
		if err != nil {
			// A failed write must not be reported as success; abort loudly.
			_ = part.Close()
			s.log.ErrorContext(r.Context(), "upload write failed",
				"bucket", bucketID, "path", rel.String(), "error", err)
			return nil, errInternal("Failed to store uploaded file")
		}
		_ = part.Close()

		f, err := s.db.UpsertFile(r.Context(), storage.File{
			BucketID:  bucketID,
			Path:      rel.String(),
			Size:      size,
			MIMEType:  mimeTypeFor(rel.String()),
			ShortID:   newShortID(),
			CreatedAt: now,
		})
		if err != nil {
			s.log.ErrorContext(r.Context(), "upload metadata upsert failed",
				"bucket", bucketID, "path", rel.String(), "error", err)
			return nil, errInternal("Failed to record uploaded file")
		}

		uploaded = append(uploaded, s.fileResponse(f))
	}
}

// destinationPath derives the sanitized relative destination for one part.
func destinationPath(fieldName, fileName string) (contentstore.RelPath, bool) {
	fieldName = fixEncoding(fieldName)
	fileName = fixEncoding(fileName)

	var raw string
	switch {
	case fieldName == "" || genericFieldNames[strings.ToLower(fieldName)]:
		raw = fileName
	default:
		raw = fieldName
	}

	rel, err := contentstore.CleanRelPath(raw)
	if err != nil {
		return contentstore.RelPath{}, false
	}
	return rel, true
}

// fixEncoding repairs multipart names that were decoded as Latin-1 although
// the client sent raw UTF-8 bytes (common for curl and browsers that skip
// the RFC 5987 filename* form). A name already containing characters above
// the Latin-1 range was decoded correctly and is kept. The re-decode is
// also kept only when it yields valid UTF-8 without replacement characters,
// so genuinely Latin-1 names are not corrupted.
func fixEncoding(name string) string {
	for _, r := range name {
		if r > 0xFF {
			return name
		}
	}

	raw, err := charmap.ISO8859_1.NewEncoder().String(name)
	if err != nil {
		return name
	}
	if !utf8.ValidString(raw) || strings.ContainsRune(raw, utf8.RuneError) {
		return name
	}
	return raw
}

// mimeTypeFor resolves a content type from the destination extension.
func mimeTypeFor(filePath string) string {
	ext := strings.ToLower(path.Ext(filePath))
	if mt, ok := mimeOverrides[ext]; ok {
		return mt
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		return mt
	}
	return "application/octet-stream"
}

// drain consumes the remainder of a skipped part so the parser can advance.
func drain(part *multipart.Part) {
	_, _ = io.Copy(io.Discard, part)
	_ = part.Close()
}
