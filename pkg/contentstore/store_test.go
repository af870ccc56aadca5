package contentstore_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/filecrate/pkg/contentstore"
)

func mustRel(t *testing.T, raw string) contentstore.RelPath {
	t.Helper()
	rel, err := contentstore.CleanRelPath(raw)
	require.NoError(t, err)
	return rel
}

func TestPutAndOpen(t *testing.T) {
	t.Parallel()

	store, err := contentstore.New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		content := "hello filecrate"
		rel := mustRel(t, "docs/readme.txt")

		n, err := store.Put(ctx, "bktA000001", rel, strings.NewReader(content))
		require.NoError(t, err)
		assert.Equal(t, int64(len(content)), n)

		f, info, err := store.Open(ctx, "bktA000001", rel)
		require.NoError(t, err)
		defer f.Close()

		assert.Equal(t, int64(len(content)), info.Size())
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, content, string(data))
	})

	t.Run("overwrite replaces bytes", func(t *testing.T) {
		t.Parallel()
		rel := mustRel(t, "file.bin")

		_, err := store.Put(ctx, "bktB000001", rel, strings.NewReader("first version"))
		require.NoError(t, err)
		_, err = store.Put(ctx, "bktB000001", rel, strings.NewReader("second"))
		require.NoError(t, err)

		f, info, err := store.Open(ctx, "bktB000001", rel)
		require.NoError(t, err)
		defer f.Close()

		data, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, "second", string(data))
		assert.Equal(t, int64(len("second")), info.Size())
	})

	t.Run("no temp files left behind", func(t *testing.T) {
		t.Parallel()
		rel := mustRel(t, "deep/nested/data.txt")
		_, err := store.Put(ctx, "bktC000001", rel, strings.NewReader("x"))
		require.NoError(t, err)

		entries, err := os.ReadDir(filepath.Join(store.Root(), "bktC000001", "deep", "nested"))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "data.txt", entries[0].Name())
	})

	t.Run("absent file", func(t *testing.T) {
		t.Parallel()
		_, _, err := store.Open(ctx, "bktA000001", mustRel(t, "nope.txt"))
		assert.ErrorIs(t, err, contentstore.ErrNotExist)
	})
}

func TestResolveStaysInsideBucket(t *testing.T) {
	t.Parallel()

	store, err := contentstore.New(t.TempDir())
	require.NoError(t, err)

	t.Run("valid path", func(t *testing.T) {
		t.Parallel()
		abs, err := store.Resolve("bktA000001", mustRel(t, "a/b.txt"))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(abs, filepath.Join(store.Root(), "bktA000001")+string(filepath.Separator)))
	})

	t.Run("bad bucket ids rejected", func(t *testing.T) {
		t.Parallel()
		for _, id := range []string{"", ".", "..", "a/b", `a\b`, "../bktA000001"} {
			_, err := store.Resolve(id, mustRel(t, "file.txt"))
			assert.ErrorIs(t, err, contentstore.ErrInvalidPath, "bucket id %q", id)
		}
	})

	t.Run("zero rel path rejected", func(t *testing.T) {
		t.Parallel()
		_, err := store.Resolve("bktA000001", contentstore.RelPath{})
		assert.ErrorIs(t, err, contentstore.ErrEmptyPath)
	})
}

func TestDeleteFile(t *testing.T) {
	t.Parallel()

	store, err := contentstore.New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	rel := mustRel(t, "gone.txt")

	_, err = store.Put(ctx, "bktD000001", rel, strings.NewReader("bye"))
	require.NoError(t, err)

	require.NoError(t, store.DeleteFile(ctx, "bktD000001", rel))
	_, _, err = store.Open(ctx, "bktD000001", rel)
	assert.ErrorIs(t, err, contentstore.ErrNotExist)

	// Second delete is a success, not an error.
	assert.NoError(t, store.DeleteFile(ctx, "bktD000001", rel))
}

func TestDeleteBucketIdempotent(t *testing.T) {
	t.Parallel()

	store, err := contentstore.New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Put(ctx, "bktE000001", mustRel(t, "a/b/c.txt"), strings.NewReader("data"))
	require.NoError(t, err)

	require.NoError(t, store.DeleteBucket(ctx, "bktE000001"))
	_, statErr := os.Stat(filepath.Join(store.Root(), "bktE000001"))
	assert.True(t, os.IsNotExist(statErr))

	// Deleting an already-absent bucket must succeed; it races the sweeper.
	assert.NoError(t, store.DeleteBucket(ctx, "bktE000001"))
	assert.NoError(t, store.DeleteBucket(ctx, "never-existed"))
}

func TestPutCancelled(t *testing.T) {
	t.Parallel()

	store, err := contentstore.New(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Put(ctx, "bktF000001", mustRel(t, "f.txt"), strings.NewReader("data"))
	assert.ErrorIs(t, err, context.Canceled)
}
