package manifest_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottgl9/android-google-drive-sync-sub001/internal/cache"
	"github.com/scottgl9/android-google-drive-sync-sub001/internal/localstore"
	"github.com/scottgl9/android-google-drive-sync-sub001/internal/manifest"
	"github.com/scottgl9/android-google-drive-sync-sub001/internal/remotestore"
	"github.com/scottgl9/android-google-drive-sync-sub001/pkg/types"
)

func fixedNow() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

func TestBuildLocal_HashesFiles(t *testing.T) {
	root := t.TempDir()
	store := localstore.New(root)
	require.NoError(t, store.WriteAtomic("a.txt", strings.NewReader("hello")))
	require.NoError(t, store.WriteAtomic("nested/b.txt", strings.NewReader("world")))

	b := manifest.NewBuilder(cache.New(types.CachePolicy{Enabled: false}, ""), types.AlgorithmSHA256, fixedNow)

	m, err := b.BuildLocal(store, "", nil, true, "")
	require.NoError(t, err)

	entry, ok := m.Get("a.txt")
	require.True(t, ok)
	assert.NotEmpty(t, entry.Checksum)
	assert.EqualValues(t, 5, entry.Size)

	_, ok = m.Get("nested/b.txt")
	assert.True(t, ok)
}

func TestBuildLocal_ReusesCachedChecksumForUnchangedSize(t *testing.T) {
	root := t.TempDir()
	store := localstore.New(root)
	require.NoError(t, store.WriteAtomic("a.txt", strings.NewReader("hello")))

	policy := types.CachePolicy{Enabled: true, MaxAge: time.Hour, MaxEntries: 10}
	c := cache.New(policy, "")
	b := manifest.NewBuilder(c, types.AlgorithmSHA256, fixedNow)

	key := cache.LocalKey(root)
	first, err := b.BuildLocal(store, "", nil, true, key)
	require.NoError(t, err)
	firstEntry, _ := first.Get("a.txt")

	second, err := b.BuildLocal(store, "", nil, true, key)
	require.NoError(t, err)
	secondEntry, _ := second.Get("a.txt")

	assert.Equal(t, firstEntry.Checksum, secondEntry.Checksum)
}

type fakeRemoteStore struct {
	entries []remotestore.Entry
}

func (f *fakeRemoteStore) EnsureFolderStructure(ctx context.Context, dir types.Path) (string, error) {
	return "root", nil
}
func (f *fakeRemoteStore) ListRecursive(ctx context.Context, root types.Path) ([]remotestore.Entry, error) {
	return f.entries, nil
}
func (f *fakeRemoteStore) Upload(ctx context.Context, relPath types.Path, content io.Reader, size uint64) (remotestore.Entry, error) {
	return remotestore.Entry{}, nil
}
func (f *fakeRemoteStore) Download(ctx context.Context, remoteID string) (io.ReadCloser, error) {
	return nil, nil
}
func (f *fakeRemoteStore) Delete(ctx context.Context, remoteID string) error { return nil }
func (f *fakeRemoteStore) FindByName(ctx context.Context, relPath types.Path) (remotestore.Entry, bool, error) {
	return remotestore.Entry{}, false, nil
}

func TestBuildRemote(t *testing.T) {
	store := &fakeRemoteStore{entries: []remotestore.Entry{
		{RemoteID: "1", RelativePath: "doc.pdf", Name: "doc.pdf", Size: 100, Checksum: "abc"},
	}}

	b := manifest.NewBuilder(cache.New(types.CachePolicy{Enabled: false}, ""), types.AlgorithmMD5, fixedNow)
	m, err := b.BuildRemote(context.Background(), store, "")
	require.NoError(t, err)

	entry, ok := m.Get("doc.pdf")
	require.True(t, ok)
	assert.Equal(t, "abc", entry.Checksum)
	assert.Equal(t, "1", entry.RemoteID)
}
