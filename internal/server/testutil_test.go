package server

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/filecrate/internal/storage"
	"github.com/dmitrymomot/filecrate/pkg/contentstore"
	"github.com/dmitrymomot/filecrate/pkg/token"
)

const (
	testAdminKey    = "admin-secret-key-for-tests"
	testTokenSecret = "token-secret-for-tests"
)

// fakeMetadata is an in-memory Metadata implementation for handler tests.
type fakeMetadata struct {
	mu      sync.Mutex
	buckets map[string]storage.Bucket
	files   map[string]map[string]storage.File // bucketID -> path -> file
	keys    map[string]storage.APIKey          // hash -> key
	nextID  int64
}

func newFakeMetadata() *fakeMetadata {
	return &fakeMetadata{
		buckets: make(map[string]storage.Bucket),
		files:   make(map[string]map[string]storage.File),
		keys:    make(map[string]storage.APIKey),
	}
}

func (f *fakeMetadata) Ping(context.Context) error { return nil }

func (f *fakeMetadata) CreateBucket(_ context.Context, b storage.Bucket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buckets[b.ID] = b
	return nil
}

func (f *fakeMetadata) GetBucket(_ context.Context, id string) (storage.Bucket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.buckets[id]
	if !ok {
		return storage.Bucket{}, storage.ErrNotFound
	}
	return b, nil
}

func (f *fakeMetadata) ListBuckets(_ context.Context, keyHash string, now int64) ([]storage.Bucket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.Bucket
	for _, b := range f.buckets {
		if keyHash != "" && b.KeyHash != keyHash {
			continue
		}
		if b.ExpiresAt != nil && *b.ExpiresAt <= now {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeMetadata) UpdateBucket(_ context.Context, b storage.Bucket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.buckets[b.ID]; !ok {
		return storage.ErrNotFound
	}
	f.buckets[b.ID] = b
	return nil
}

func (f *fakeMetadata) DeleteBucket(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.buckets, id)
	delete(f.files, id)
	return nil
}

func (f *fakeMetadata) UpsertFile(_ context.Context, file storage.File) (storage.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.files[file.BucketID] == nil {
		f.files[file.BucketID] = make(map[string]storage.File)
	}
	f.nextID++
	file.ID = f.nextID
	f.files[file.BucketID][file.Path] = file
	return file, nil
}

func (f *fakeMetadata) ListFiles(_ context.Context, bucketID string) ([]storage.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.File
	for _, file := range f.files[bucketID] {
		out = append(out, file)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (f *fakeMetadata) GetFile(_ context.Context, bucketID, path string) (storage.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[bucketID][path]
	if !ok {
		return storage.File{}, storage.ErrNotFound
	}
	return file, nil
}

func (f *fakeMetadata) GetFileByShortID(_ context.Context, shortID string) (storage.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, bucket := range f.files {
		for _, file := range bucket {
			if file.ShortID == shortID {
				return file, nil
			}
		}
	}
	return storage.File{}, storage.ErrNotFound
}

func (f *fakeMetadata) DeleteFile(_ context.Context, bucketID, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[bucketID][path]; !ok {
		return storage.ErrNotFound
	}
	delete(f.files[bucketID], path)
	return nil
}

func (f *fakeMetadata) CreateAPIKey(_ context.Context, k storage.APIKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[k.Hash] = k
	return nil
}

func (f *fakeMetadata) TouchAPIKey(_ context.Context, hash string, now int64) (storage.APIKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k, ok := f.keys[hash]
	if !ok {
		return storage.APIKey{}, storage.ErrNotFound
	}
	k.LastUsedAt = now
	f.keys[hash] = k
	return k, nil
}

func (f *fakeMetadata) ListAPIKeys(_ context.Context) ([]storage.APIKeyInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.APIKeyInfo
	for _, k := range f.keys {
		var count int64
		for _, b := range f.buckets {
			if b.KeyHash == k.Hash {
				count++
			}
		}
		out = append(out, storage.APIKeyInfo{
			Prefix:      k.Prefix,
			Name:        k.Name,
			CreatedAt:   k.CreatedAt,
			LastUsedAt:  k.LastUsedAt,
			BucketCount: count,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Prefix < out[j].Prefix })
	return out, nil
}

func (f *fakeMetadata) GetAPIKeyByPrefix(_ context.Context, prefix string) (storage.APIKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range f.keys {
		if k.Prefix == prefix {
			return k, nil
		}
	}
	return storage.APIKey{}, storage.ErrNotFound
}

func (f *fakeMetadata) DeleteAPIKeyByPrefix(_ context.Context, prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for hash, k := range f.keys {
		if k.Prefix == prefix {
			delete(f.keys, hash)
			return nil
		}
	}
	return storage.ErrNotFound
}

// testEnv bundles a Server with its fake dependencies and a settable clock.
type testEnv struct {
	srv   *Server
	db    *fakeMetadata
	files *contentstore.Store
	clock *fakeClock
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	files, err := contentstore.New(t.TempDir())
	require.NoError(t, err)

	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	db := newFakeMetadata()

	srv := New(
		Config{
			Addr:        ":0",
			BaseURL:     "http://store.test",
			AdminAPIKey: testAdminKey,
			TokenSecret: testTokenSecret,
		},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		db,
		files,
		token.NewCodec(testTokenSecret, token.WithClock(clock.Now)),
		WithClock(clock.Now),
	)

	return &testEnv{srv: srv, db: db, files: files, clock: clock}
}

// seedKey registers a named API key and returns the raw bearer value.
func (e *testEnv) seedKey(t *testing.T, name string) string {
	t.Helper()
	rawKey, hash, prefix := newAPIKey()
	require.NoError(t, e.db.CreateAPIKey(context.Background(), storage.APIKey{
		Hash:      hash,
		Prefix:    prefix,
		Name:      name,
		CreatedAt: e.clock.Now().Unix(),
	}))
	return rawKey
}
