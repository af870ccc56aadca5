package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/filecrate/internal/storage"
	"github.com/dmitrymomot/filecrate/pkg/contentstore"
)

// byteRange is an inclusive [Start, End] window within a file.
type byteRange struct {
	Start int64
	End   int64
}

func (r byteRange) length() int64 { return r.End - r.Start + 1 }

var errUnsatisfiableRange = errors.New("unsatisfiable range")

// parseRange parses a single-range header of the forms "bytes=A-B",
// "bytes=A-" and "bytes=-N". Multi-range (comma-separated) headers and
// anything else malformed are rejected rather than mis-parsed; B is clamped
// to the last byte.
func parseRange(header string, size int64) (byteRange, error) {
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok || strings.ContainsRune(spec, ',') {
		return byteRange{}, errUnsatisfiableRange
	}

	first, last, ok := strings.Cut(spec, "-")
	if !ok {
		return byteRange{}, errUnsatisfiableRange
	}

	var start, end int64
	switch {
	case first == "" && last != "":
		// Suffix form: last N bytes.
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil || n <= 0 {
			return byteRange{}, errUnsatisfiableRange
		}
		start = size - n
		if start < 0 {
			start = 0
		}
		end = size - 1
	case first != "" && last == "":
		// Open-ended: from A to EOF.
		a, err := strconv.ParseInt(first, 10, 64)
		if err != nil {
			return byteRange{}, errUnsatisfiableRange
		}
		start, end = a, size-1
	case first != "" && last != "":
		a, err := strconv.ParseInt(first, 10, 64)
		if err != nil {
			return byteRange{}, errUnsatisfiableRange
		}
		b, err := strconv.ParseInt(last, 10, 64)
		if err != nil {
			return byteRange{}, errUnsatisfiableRange
		}
		start, end = a, b
	default:
		return byteRange{}, errUnsatisfiableRange
	}

	if start > end || start >= size {
		return byteRange{}, errUnsatisfiableRange
	}
	if end > size-1 {
		end = size - 1
	}
	return byteRange{Start: start, End: end}, nil
}

// contentDisposition builds an inline disposition with an ASCII-safe
// fallback plus the RFC 5987 extended form for non-ASCII filenames, so both
// legacy and modern clients get a usable name.
func contentDisposition(fileName string) string {
	if isASCII(fileName) {
		return fmt.Sprintf("inline; filename=%q", fileName)
	}
	escaped := url.PathEscape(fileName)
	return fmt.Sprintf("inline; filename=%q; filename*=UTF-8''%s", escaped, escaped)
}

func isASCII(s string) bool {
	for _, r := range s {
		if r < 0x20 || r > 0x7E {
			return false
		}
	}
	return true
}

// cacheControl derives the cache directive from bucket expiry: permanent
// buckets are immutable, expiring buckets get the exact remaining seconds
// recomputed per request.
func (s *Server) cacheControl(b storage.Bucket) string {
	remaining, expires := b.Remaining(s.now())
	if !expires {
		return "public, max-age=31536000, immutable"
	}
	return fmt.Sprintf("public, max-age=%d", remaining)
}

func (s *Server) handleRawDownload(w http.ResponseWriter, r *http.Request) {
	bucketID := chi.URLParam(r, "bucket")

	rawPath, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil {
		s.respondError(w, errBadRequest("Invalid path", "File path is not valid percent-encoding."))
		return
	}
	rel, err := contentstore.CleanRelPath(rawPath)
	if err != nil {
		s.respondError(w, errBadRequest("Invalid path", "File path is empty or escapes the bucket."))
		return
	}

	b, lookupErr := s.lookupBucket(r, bucketID)
	if lookupErr != nil {
		s.respondError(w, lookupErr)
		return
	}

	file, err := s.db.GetFile(r.Context(), b.ID, rel.String())
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, errNotFound("File not found",
			"No file at path '"+rel.String()+"' in this bucket."))
		return
	}
	if err != nil {
		s.log.ErrorContext(r.Context(), "file lookup failed", "bucket", b.ID, "path", rel.String(), "error", err)
		s.respondError(w, errInternal("File lookup failed"))
		return
	}

	src, info, err := s.files.Open(r.Context(), b.ID, rel)
	if errors.Is(err, contentstore.ErrNotExist) {
		// Metadata says the file exists but the bytes are gone. Storage
		// corruption, not a legitimate absence; surface it loudly.
		s.log.ErrorContext(r.Context(), "integrity fault: file bytes missing",
			"bucket", b.ID, "path", rel.String())
		s.respondError(w, &httpError{Status: http.StatusInternalServerError,
			Msg: "File missing", Hint: "The file record exists but the data is missing from storage."})
		return
	}
	if err != nil {
		s.log.ErrorContext(r.Context(), "file open failed", "bucket", b.ID, "path", rel.String(), "error", err)
		s.respondError(w, errInternal("Could not open file"))
		return
	}
	defer src.Close()

	size := info.Size()
	w.Header().Set("Content-Type", file.MIMEType)
	w.Header().Set("Content-Disposition", contentDisposition(rel.Base()))
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Cache-Control", s.cacheControl(b))

	if rangeHeader := r.Header.Get("Range"); rangeHeader != "" {
		rng, err := parseRange(rangeHeader, size)
		if err != nil {
			// Malformed ranges get 416 with the size hint so well-behaved
			// clients can retry without a Range header.
			w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
			http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
			return
		}

		if _, err := src.Seek(rng.Start, io.SeekStart); err != nil {
			s.log.ErrorContext(r.Context(), "seek failed", "bucket", b.ID, "path", rel.String(), "error", err)
			s.respondError(w, errInternal("Could not read file"))
			return
		}

		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.Start, rng.End, size))
		w.Header().Set("Content-Length", strconv.FormatInt(rng.length(), 10))
		w.WriteHeader(http.StatusPartialContent)
		// Client disconnects surface as write errors; nothing to do but stop.
		_, _ = io.CopyN(w, src, rng.length())
		return
	}

	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, src)
}
