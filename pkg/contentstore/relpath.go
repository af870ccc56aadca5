package contentstore

import (
	"path"
	"strings"
)

// RelPath is a sanitized forward-slash relative path inside a bucket.
// The zero value is invalid; construct via CleanRelPath so every path that
// reaches the filesystem went through the same pipeline.
type RelPath struct {
	p string
}

// String returns the normalized forward-slash form.
func (r RelPath) String() string { return r.p }

// IsZero reports whether the path was never constructed via CleanRelPath.
func (r RelPath) IsZero() bool { return r.p == "" }

// Base returns the final path element.
func (r RelPath) Base() string { return path.Base(r.p) }

// CleanRelPath sanitizes a user-supplied destination path: trims whitespace,
// strips leading slashes, collapses repeated slashes and rejects anything
// that is empty, ".", ".." or still contains a ".." segment afterwards.
func CleanRelPath(raw string) (RelPath, error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "\\", "/")
	s = strings.TrimLeft(s, "/")
	for strings.Contains(s, "//") {
		s = strings.ReplaceAll(s, "//", "/")
	}

	if s == "" || s == "." || s == ".." {
		return RelPath{}, ErrEmptyPath
	}

	cleaned := path.Clean(s)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return RelPath{}, ErrInvalidPath
	}
	for _, seg := range strings.Split(cleaned, "/") {
		if seg == ".." {
			return RelPath{}, ErrInvalidPath
		}
	}

	return RelPath{p: cleaned}, nil
}
