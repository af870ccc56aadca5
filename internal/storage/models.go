package storage

import "time"

// Bucket is a named, time-bounded collection of files. ID doubles as the
// bucket's directory name in the content store; it is generated from a
// URL-safe alphabet and never contains path separators.
type Bucket struct {
	ID          string
	Name        string
	KeyHash     string
	Owner       string
	Description *string
	Purpose     *string
	CreatedAt   int64
	ExpiresAt   *int64 // nil means permanent
}

// Expired reports whether the bucket's expiry timestamp has passed.
func (b Bucket) Expired(now time.Time) bool {
	return b.ExpiresAt != nil && *b.ExpiresAt < now.Unix()
}

// Remaining returns the seconds until expiry, clamped at zero. The second
// return is false for permanent buckets.
func (b Bucket) Remaining(now time.Time) (int64, bool) {
	if b.ExpiresAt == nil {
		return 0, false
	}
	r := *b.ExpiresAt - now.Unix()
	if r < 0 {
		r = 0
	}
	return r, true
}

// File is a metadata record for one stored object. (BucketID, Path) is
// unique; re-uploads replace the row and mint a fresh ShortID.
type File struct {
	ID        int64
	BucketID  string
	Path      string
	Size      int64
	MIMEType  string
	ShortID   string
	CreatedAt int64
}

// APIKey holds the persisted form of an issued key. The raw key is shown
// once at creation; only its SHA-256 hash is stored.
type APIKey struct {
	Hash       string
	Prefix     string
	Name       string
	CreatedAt  int64
	LastUsedAt int64
}

// APIKeyInfo is an APIKey joined with the number of buckets it owns.
type APIKeyInfo struct {
	Prefix      string
	Name        string
	CreatedAt   int64
	LastUsedAt  int64
	BucketCount int64
}
