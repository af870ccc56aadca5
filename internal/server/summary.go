package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/filecrate/pkg/contentstore"
)

// handleSummary renders a plain-text digest of a bucket: its metadata, a file
// listing with humanized sizes, and the contents of a top-level README.md when
// one exists. Designed for terminals and LLM context windows, not browsers.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	b, lookupErr := s.lookupBucket(r, chi.URLParam(r, "id"))
	if lookupErr != nil {
		w.WriteHeader(lookupErr.Status)
		fmt.Fprintf(w, "%s\n%s\n", lookupErr.Msg, lookupErr.Hint)
		return
	}

	files, err := s.db.ListFiles(r.Context(), b.ID)
	if err != nil {
		s.log.ErrorContext(r.Context(), "file list failed", "bucket", b.ID, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintln(w, "Could not list files")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", b.Name)
	fmt.Fprintf(&sb, "Owner: %s\n", b.Owner)
	if b.Purpose != nil {
		fmt.Fprintf(&sb, "For: %s\n", *b.Purpose)
	}
	if b.Description != nil {
		fmt.Fprintf(&sb, "Description: %s\n", *b.Description)
	}
	fmt.Fprintf(&sb, "Files: %d\n", len(files))

	if len(files) > 0 {
		sb.WriteString("\n## File Listing\n\n")
		for _, f := range files {
			fmt.Fprintf(&sb, "- %s (%s, %s)\n", f.Path, humanSize(f.Size), f.MIMEType)
		}
	}

	if readme := s.readmeContent(r, b.ID); readme != "" {
		sb.WriteString("\n## README.md\n\n")
		sb.WriteString(readme)
		if !strings.HasSuffix(readme, "\n") {
			sb.WriteString("\n")
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, sb.String())
}

// readmeContent returns the bucket's top-level README.md, or "" when absent.
// Capped at 64KiB so an oversized README cannot bloat every summary.
func (s *Server) readmeContent(r *http.Request, bucketID string) string {
	rel, err := contentstore.CleanRelPath("README.md")
	if err != nil {
		return ""
	}
	src, _, err := s.files.Open(r.Context(), bucketID, rel)
	if err != nil {
		return ""
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, 64<<10))
	if err != nil {
		return ""
	}
	return string(data)
}

// humanSize formats a byte count with binary units and one decimal.
func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
