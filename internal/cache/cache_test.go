package cache_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottgl9/android-google-drive-sync-sub001/internal/cache"
	"github.com/scottgl9/android-google-drive-sync-sub001/pkg/types"
)

func samplePolicy() types.CachePolicy {
	return types.CachePolicy{Enabled: true, MaxAge: time.Hour, MaxEntries: 2}
}

func TestPutThenGet(t *testing.T) {
	c := cache.New(samplePolicy(), "")
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	m := types.NewManifest(now)
	c.Put(cache.LocalKey("/a"), m, now)

	got, ok := c.Get(cache.LocalKey("/a"), now.Add(time.Minute))
	require.True(t, ok)
	assert.Same(t, m, got)
}

func TestGet_ExpiredEntryIsEvicted(t *testing.T) {
	c := cache.New(samplePolicy(), "")
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	c.Put(cache.LocalKey("/a"), types.NewManifest(now), now)

	_, ok := c.Get(cache.LocalKey("/a"), now.Add(2*time.Hour))
	assert.False(t, ok)
}

func TestPut_EvictsOldestBeyondMaxEntries(t *testing.T) {
	c := cache.New(samplePolicy(), "")
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	c.Put(cache.LocalKey("/a"), types.NewManifest(now), now)
	c.Put(cache.LocalKey("/b"), types.NewManifest(now), now)
	c.Put(cache.LocalKey("/c"), types.NewManifest(now), now)

	_, ok := c.Get(cache.LocalKey("/a"), now)
	assert.False(t, ok, "oldest entry should have been evicted")

	_, ok = c.Get(cache.LocalKey("/c"), now)
	assert.True(t, ok)
}

func TestInvalidate(t *testing.T) {
	c := cache.New(samplePolicy(), "")
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	c.Put(cache.LocalKey("/a"), types.NewManifest(now), now)
	c.Invalidate(cache.LocalKey("/a"))

	_, ok := c.Get(cache.LocalKey("/a"), now)
	assert.False(t, ok)
}

func TestDisabledPolicy_NeverStores(t *testing.T) {
	c := cache.New(types.CachePolicy{Enabled: false}, "")
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	c.Put(cache.LocalKey("/a"), types.NewManifest(now), now)

	_, ok := c.Get(cache.LocalKey("/a"), now)
	assert.False(t, ok)
}

func TestSaveAndLoadFromDisk(t *testing.T) {
	dir := t.TempDir()
	diskPath := filepath.Join(dir, "manifest-cache.json")
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	c1 := cache.New(samplePolicy(), diskPath)
	m := types.NewManifest(now)
	m.Put(types.ManifestEntry{RelativePath: "a.txt", Name: "a.txt", Size: 10})
	c1.Put(cache.LocalKey("/a"), m, now)
	require.NoError(t, c1.SaveToDisk())

	c2 := cache.New(samplePolicy(), diskPath)
	require.NoError(t, c2.LoadFromDisk())

	got, ok := c2.Get(cache.LocalKey("/a"), now)
	require.True(t, ok)
	entry, ok := got.Get("a.txt")
	require.True(t, ok)
	assert.EqualValues(t, 10, entry.Size)
}

func TestLoadFromDisk_MissingFileIsNotAnError(t *testing.T) {
	c := cache.New(samplePolicy(), filepath.Join(t.TempDir(), "does-not-exist.json"))
	assert.NoError(t, c.LoadFromDisk())
}
