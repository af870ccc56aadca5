package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store runs metadata queries against a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an established connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping verifies database connectivity. Used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const bucketColumns = "id, name, key_hash, owner, description, purpose, created_at, expires_at"

func scanBucket(row pgx.Row) (Bucket, error) {
	var b Bucket
	err := row.Scan(&b.ID, &b.Name, &b.KeyHash, &b.Owner, &b.Description, &b.Purpose, &b.CreatedAt, &b.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Bucket{}, ErrNotFound
	}
	if err != nil {
		return Bucket{}, fmt.Errorf("scan bucket: %w", err)
	}
	return b, nil
}

// CreateBucket inserts a new bucket record.
func (s *Store) CreateBucket(ctx context.Context, b Bucket) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO buckets (`+bucketColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		b.ID, b.Name, b.KeyHash, b.Owner, b.Description, b.Purpose, b.CreatedAt, b.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

// GetBucket fetches a bucket by ID regardless of expiry; callers decide how
// expired buckets surface.
func (s *Store) GetBucket(ctx context.Context, id string) (Bucket, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+bucketColumns+` FROM buckets WHERE id = $1`, id)
	return scanBucket(row)
}

// ListBuckets returns non-expired buckets. With a non-empty keyHash only
// that owner's buckets are returned; admins pass "" for all.
func (s *Store) ListBuckets(ctx context.Context, keyHash string, now int64) ([]Bucket, error) {
	query := `SELECT ` + bucketColumns + ` FROM buckets
		WHERE (expires_at IS NULL OR expires_at > $1)`
	args := []any{now}
	if keyHash != "" {
		query += ` AND key_hash = $2`
		args = append(args, keyHash)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	defer rows.Close()

	var out []Bucket
	for rows.Next() {
		b, err := scanBucket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListExpiredBuckets returns buckets whose expiry timestamp is in the past.
func (s *Store) ListExpiredBuckets(ctx context.Context, now int64) ([]Bucket, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+bucketColumns+` FROM buckets WHERE expires_at IS NOT NULL AND expires_at < $1`, now)
	if err != nil {
		return nil, fmt.Errorf("list expired buckets: %w", err)
	}
	defer rows.Close()

	var out []Bucket
	for rows.Next() {
		b, err := scanBucket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateBucket persists name, description and expiry changes.
func (s *Store) UpdateBucket(ctx context.Context, b Bucket) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE buckets SET name = $2, description = $3, expires_at = $4 WHERE id = $1`,
		b.ID, b.Name, b.Description, b.ExpiresAt)
	if err != nil {
		return fmt.Errorf("update bucket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBucket removes the bucket row; file rows cascade. Deleting an
// already-absent bucket is a success since it may race with the sweeper.
func (s *Store) DeleteBucket(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM buckets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete bucket: %w", err)
	}
	return nil
}

const fileColumns = "id, bucket_id, path, size, mime_type, short_id, created_at"

func scanFile(row pgx.Row) (File, error) {
	var f File
	err := row.Scan(&f.ID, &f.BucketID, &f.Path, &f.Size, &f.MIMEType, &f.ShortID, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return File{}, ErrNotFound
	}
	if err != nil {
		return File{}, fmt.Errorf("scan file: %w", err)
	}
	return f, nil
}

// UpsertFile atomically replaces the record for (bucket_id, path): the old
// row is deleted and a new one inserted in a single transaction, so the old
// short ID dies with the old row.
func (s *Store) UpsertFile(ctx context.Context, f File) (File, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return File{}, fmt.Errorf("upsert file: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM files WHERE bucket_id = $1 AND path = $2`, f.BucketID, f.Path); err != nil {
		return File{}, fmt.Errorf("upsert file: %w", err)
	}

	row := tx.QueryRow(ctx,
		`INSERT INTO files (bucket_id, path, size, mime_type, short_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		f.BucketID, f.Path, f.Size, f.MIMEType, f.ShortID, f.CreatedAt)
	if err := row.Scan(&f.ID); err != nil {
		return File{}, fmt.Errorf("upsert file: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return File{}, fmt.Errorf("upsert file: %w", err)
	}
	return f, nil
}

// ListFiles returns all file records in a bucket ordered by path.
func (s *Store) ListFiles(ctx context.Context, bucketID string) ([]File, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+fileColumns+` FROM files WHERE bucket_id = $1 ORDER BY path`, bucketID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// GetFile fetches one file record by bucket and path.
func (s *Store) GetFile(ctx context.Context, bucketID, path string) (File, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+fileColumns+` FROM files WHERE bucket_id = $1 AND path = $2`, bucketID, path)
	return scanFile(row)
}

// GetFileByShortID resolves a short link alias to its file record.
func (s *Store) GetFileByShortID(ctx context.Context, shortID string) (File, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+fileColumns+` FROM files WHERE short_id = $1`, shortID)
	return scanFile(row)
}

// DeleteFile removes one file record.
func (s *Store) DeleteFile(ctx context.Context, bucketID, path string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM files WHERE bucket_id = $1 AND path = $2`, bucketID, path)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateAPIKey stores a new key record (hash, not the raw key).
func (s *Store) CreateAPIKey(ctx context.Context, k APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (hash, prefix, name, created_at, last_used_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		k.Hash, k.Prefix, k.Name, k.CreatedAt, k.LastUsedAt)
	if err != nil {
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

// TouchAPIKey looks up a key by hash and bumps last_used_at in the same
// statement; authentication is a read with a side effect.
func (s *Store) TouchAPIKey(ctx context.Context, hash string, now int64) (APIKey, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE api_keys SET last_used_at = $2 WHERE hash = $1
		 RETURNING hash, prefix, name, created_at, last_used_at`,
		hash, now)

	var k APIKey
	err := row.Scan(&k.Hash, &k.Prefix, &k.Name, &k.CreatedAt, &k.LastUsedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return APIKey{}, ErrNotFound
	}
	if err != nil {
		return APIKey{}, fmt.Errorf("touch api key: %w", err)
	}
	return k, nil
}

// ListAPIKeys returns all keys with the number of buckets each one owns.
func (s *Store) ListAPIKeys(ctx context.Context) ([]APIKeyInfo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT k.prefix, k.name, k.created_at, k.last_used_at,
		        COALESCE(b.cnt, 0)
		 FROM api_keys k
		 LEFT JOIN (
		     SELECT key_hash, COUNT(*) AS cnt FROM buckets GROUP BY key_hash
		 ) b ON b.key_hash = k.hash
		 ORDER BY k.created_at`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var out []APIKeyInfo
	for rows.Next() {
		var k APIKeyInfo
		if err := rows.Scan(&k.Prefix, &k.Name, &k.CreatedAt, &k.LastUsedAt, &k.BucketCount); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// GetAPIKeyByPrefix fetches a key by its display prefix.
func (s *Store) GetAPIKeyByPrefix(ctx context.Context, prefix string) (APIKey, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT hash, prefix, name, created_at, last_used_at FROM api_keys WHERE prefix = $1`, prefix)

	var k APIKey
	err := row.Scan(&k.Hash, &k.Prefix, &k.Name, &k.CreatedAt, &k.LastUsedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return APIKey{}, ErrNotFound
	}
	if err != nil {
		return APIKey{}, fmt.Errorf("get api key: %w", err)
	}
	return k, nil
}

// DeleteAPIKeyByPrefix revokes a key.
func (s *Store) DeleteAPIKeyByPrefix(ctx context.Context, prefix string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM api_keys WHERE prefix = $1`, prefix)
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
