package contentstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store persists file bytes under root, one subdirectory per bucket ID.
// All operations are confined to the bucket's subtree; see Resolve.
// Safe for concurrent use: overwrite safety comes from write-then-rename.
type Store struct {
	root string // absolute content root
}

// New creates a Store rooted at root, creating the directory if needed.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, ErrInvalidConfig
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToCreateDirectory, err)
	}

	return &Store{root: abs}, nil
}

// Root returns the absolute content root. Used for logging and diagnostics.
func (s *Store) Root() string { return s.root }

// Resolve maps (bucketID, rel) to an absolute path and verifies the result
// is still lexically inside the bucket's directory. It runs on every read
// and write, not just at ingestion.
func (s *Store) Resolve(bucketID string, rel RelPath) (string, error) {
	bucketRoot, err := s.bucketRoot(bucketID)
	if err != nil {
		return "", err
	}
	if rel.IsZero() {
		return "", ErrEmptyPath
	}

	abs := filepath.Join(bucketRoot, filepath.FromSlash(rel.String()))
	if !strings.HasPrefix(abs, bucketRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s escapes bucket root", ErrInvalidPath, rel)
	}
	return abs, nil
}

// Put streams src to the file at (bucketID, rel), creating intermediate
// directories and replacing any existing file at that exact path. Returns
// the number of bytes written. The write lands in a temp file first and is
// renamed over the target so readers never see partial content.
func (s *Store) Put(ctx context.Context, bucketID string, rel RelPath, src io.Reader) (int64, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	abs, err := s.Resolve(bucketID, rel)
	if err != nil {
		return 0, err
	}

	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrFailedToCreateDirectory, err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrFailedToWriteFile, err)
	}
	tmpName := tmp.Name()

	written, err := copyWithContext(ctx, tmp, src)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return 0, fmt.Errorf("%w: %v", ErrFailedToWriteFile, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return 0, fmt.Errorf("%w: %v", ErrFailedToWriteFile, err)
	}

	if err := os.Rename(tmpName, abs); err != nil {
		_ = os.Remove(tmpName)
		return 0, fmt.Errorf("%w: %v", ErrFailedToWriteFile, err)
	}

	return written, nil
}

// Open returns a seekable reader over the file at (bucketID, rel) together
// with its FileInfo. Absence is reported as ErrNotExist, not a fault.
func (s *Store) Open(ctx context.Context, bucketID string, rel RelPath) (io.ReadSeekCloser, os.FileInfo, error) {
	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	default:
	}

	abs, err := s.Resolve(bucketID, rel)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrNotExist
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrFailedToOpenFile, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("%w: %v", ErrFailedToOpenFile, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, nil, ErrNotExist
	}

	return f, info, nil
}

// Exists reports whether a regular file is present at (bucketID, rel).
func (s *Store) Exists(ctx context.Context, bucketID string, rel RelPath) bool {
	select {
	case <-ctx.Done():
		return false
	default:
	}

	abs, err := s.Resolve(bucketID, rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && !info.IsDir()
}

// DeleteFile removes the file at (bucketID, rel). Deleting an absent file is
// a success since it may race with the sweeper.
func (s *Store) DeleteFile(ctx context.Context, bucketID string, rel RelPath) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	abs, err := s.Resolve(bucketID, rel)
	if err != nil {
		return err
	}

	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrFailedToDeleteFile, err)
	}
	return nil
}

// DeleteBucket removes the bucket's entire subtree. Idempotent: deleting an
// already-absent bucket directory is a success.
func (s *Store) DeleteBucket(ctx context.Context, bucketID string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	bucketRoot, err := s.bucketRoot(bucketID)
	if err != nil {
		return err
	}

	if err := os.RemoveAll(bucketRoot); err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToDeleteBucket, err)
	}
	return nil
}

// bucketRoot validates the bucket ID and returns its absolute directory.
// Bucket IDs are generated server-side from a URL-safe alphabet, but the
// check still runs on every call so a raw ID from a route parameter can
// never step outside the content root.
func (s *Store) bucketRoot(bucketID string) (string, error) {
	if bucketID == "" || bucketID == "." || bucketID == ".." ||
		strings.ContainsAny(bucketID, `/\`) {
		return "", fmt.Errorf("%w: bad bucket id %q", ErrInvalidPath, bucketID)
	}
	return filepath.Join(s.root, bucketID), nil
}

// copyWithContext copies src to dst through a fixed buffer, checking for
// cancellation between chunks so a dead client stops a large upload.
func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	var written int64
	buf := make([]byte, 32*1024)
	for {
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		default:
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			nw, writeErr := dst.Write(buf[:n])
			written += int64(nw)
			if writeErr != nil {
				return written, fmt.Errorf("%w: %v", ErrFailedToWriteFile, writeErr)
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("%w: %v", ErrFailedToWriteFile, readErr)
		}
	}
}
