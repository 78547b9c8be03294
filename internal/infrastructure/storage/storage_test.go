package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"roi-harvester/internal/domain/entity"
)

func TestFileScanStore_FlushAndLoad(t *testing.T) {
	dir := t.TempDir()
	store := NewFileScanStore(dir)
	ctx := context.Background()

	_, ok, err := store.LoadCheckpoint(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	mapping := entity.ROIMapping{"/src/a_RAW.jpg": {X: 1, Y: 2, Width: 3, Height: 4}}
	require.NoError(t, store.Flush(ctx, entity.Checkpoint{LastIdentifier: 42, AcceptedCount: 100}, mapping))

	cp, ok, err := store.LoadCheckpoint(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, entity.Checkpoint{LastIdentifier: 42, AcceptedCount: 100}, cp)

	loaded, err := store.LoadMapping(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, 3.0, loaded["/src/a_RAW.jpg"].Width)

	require.FileExists(t, filepath.Join(dir, "images_and_roi100.json"))

	// Временных файлов не остаётся.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestFileScanStore_LegacyCheckpoint(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "last_scan.json"),
		[]byte(`{"last_mediagate_id": 1268138, "roi_count": 10100}`), 0o644))

	cp, ok, err := NewFileScanStore(dir).LoadCheckpoint(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1268138), cp.LastIdentifier)
	require.Equal(t, 10100, cp.AcceptedCount)
}

func TestFileScanStore_MissingMapping(t *testing.T) {
	store := NewFileScanStore(t.TempDir())

	m, err := store.LoadMapping(context.Background(), 0)
	require.NoError(t, err)
	require.Empty(t, m)

	_, err = store.LoadMapping(context.Background(), 200)
	require.True(t, errors.Is(err, ErrMappingNotFound))
}

func TestMemoryScanStore_FlushCopiesMapping(t *testing.T) {
	store := NewMemoryScanStore()
	ctx := context.Background()

	mapping := entity.ROIMapping{"a": {Width: 1}}
	require.NoError(t, store.Flush(ctx, entity.Checkpoint{LastIdentifier: 5, AcceptedCount: 1}, mapping))
	mapping["b"] = entity.PhysicalRect{Width: 2}

	loaded, err := store.LoadMapping(ctx, 1)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, 1, store.Flushes())
}

func TestFilePercentCache_PersistsEveryChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), PercentCacheFile)
	ctx := context.Background()

	cache, err := OpenPercentCache(path)
	require.NoError(t, err)
	require.Empty(t, cache.Keys())

	require.NoError(t, cache.Put(ctx, "/local/a.jpg", entity.PercentRect{X: 0.1, Y: 0.2, W: 0.3, H: 0.4}))
	require.NoError(t, cache.Put(ctx, "/local/b.jpg", entity.PercentRect{X: 0.5, Y: 0.5, W: 0.1, H: 0.1}))

	reopened, err := OpenPercentCache(path)
	require.NoError(t, err)
	require.Equal(t, []string{"/local/a.jpg", "/local/b.jpg"}, reopened.Keys())

	require.NoError(t, reopened.Delete(ctx, "/local/a.jpg"))

	again, err := OpenPercentCache(path)
	require.NoError(t, err)
	_, ok := again.Get("/local/a.jpg")
	require.False(t, ok)
	r, ok := again.Get("/local/b.jpg")
	require.True(t, ok)
	require.Equal(t, 0.5, r.X)
}
