package engine_test

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottgl9/android-google-drive-sync-sub001/internal/cache"
	"github.com/scottgl9/android-google-drive-sync-sub001/internal/engine"
	"github.com/scottgl9/android-google-drive-sync-sub001/internal/hashutil"
	"github.com/scottgl9/android-google-drive-sync-sub001/internal/localstore"
	"github.com/scottgl9/android-google-drive-sync-sub001/internal/remotestore"
	"github.com/scottgl9/android-google-drive-sync-sub001/pkg/types"
)

type remoteFile struct {
	id       string
	content  []byte
	modified time.Time
}

// fakeRemote is an in-memory RemoteStore double, standing in for the Zoho
// WorkDrive adapter so engine tests don't need network access.
type fakeRemote struct {
	mu      sync.Mutex
	nextID  int
	byID    map[string]*remoteFile
	byPath  map[types.Path]string
	now     time.Time
}

func newFakeRemote(now time.Time) *fakeRemote {
	return &fakeRemote{
		byID:   make(map[string]*remoteFile),
		byPath: make(map[types.Path]string),
		now:    now,
	}
}

func (f *fakeRemote) seed(relPath types.Path, content string, modified time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("remote-%d", f.nextID)
	f.byID[id] = &remoteFile{id: id, content: []byte(content), modified: modified}
	f.byPath[relPath] = id
}

func (f *fakeRemote) EnsureFolderStructure(ctx context.Context, dir types.Path) (string, error) {
	return "root", nil
}

func (f *fakeRemote) ListRecursive(ctx context.Context, root types.Path) ([]remotestore.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []remotestore.Entry
	for path, id := range f.byPath {
		rf := f.byID[id]
		out = append(out, remotestore.Entry{
			RemoteID:     id,
			RelativePath: path,
			Name:         path.Name(),
			Size:         uint64(len(rf.content)),
			ModifiedTime: rf.modified,
			Checksum:     hashutil.Bytes(rf.content, types.AlgorithmSHA256),
		})
	}
	return out, nil
}

func (f *fakeRemote) Upload(ctx context.Context, relPath types.Path, content io.Reader, size uint64) (remotestore.Entry, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return remotestore.Entry{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("remote-%d", f.nextID)
	f.byID[id] = &remoteFile{id: id, content: data, modified: f.now}
	f.byPath[relPath] = id

	return remotestore.Entry{RemoteID: id, RelativePath: relPath, Name: relPath.Name(), Size: uint64(len(data))}, nil
}

func (f *fakeRemote) Download(ctx context.Context, remoteID string) (io.ReadCloser, error) {
	f.mu.Lock()
	rf, ok := f.byID[remoteID]
	f.mu.Unlock()
	if !ok {
		return nil, types.NewSyncError(types.ErrorClassRemote, types.CodeNotFound, "no such remote id", nil)
	}
	return io.NopCloser(strings.NewReader(string(rf.content))), nil
}

func (f *fakeRemote) Delete(ctx context.Context, remoteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, remoteID)
	for path, id := range f.byPath {
		if id == remoteID {
			delete(f.byPath, path)
		}
	}
	return nil
}

func (f *fakeRemote) FindByName(ctx context.Context, relPath types.Path) (remotestore.Entry, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byPath[relPath]
	if !ok {
		return remotestore.Entry{}, false, nil
	}
	rf := f.byID[id]
	return remotestore.Entry{
		RemoteID:     id,
		RelativePath: relPath,
		Name:         relPath.Name(),
		Size:         uint64(len(rf.content)),
		ModifiedTime: rf.modified,
		Checksum:     hashutil.Bytes(rf.content, types.AlgorithmSHA256),
	}, true, nil
}

type memoryResumeStore struct {
	mu    sync.Mutex
	saved map[string]*types.ResumeInfo
}

func newMemoryResumeStore() *memoryResumeStore {
	return &memoryResumeStore{saved: make(map[string]*types.ResumeInfo)}
}

func (m *memoryResumeStore) Save(info *types.ResumeInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[info.SyncID] = info
	return nil
}

func (m *memoryResumeStore) Load(syncID string) (*types.ResumeInfo, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.saved[syncID]
	return info, ok, nil
}

func (m *memoryResumeStore) Delete(syncID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.saved, syncID)
	return nil
}

func baseOptions(localRoot string) types.SyncOptions {
	opts := types.DefaultSyncOptions("testapp")
	opts.ChecksumAlgorithm = types.AlgorithmSHA256
	opts.MaxParallelTransfers = 2
	opts.SyncDirectories = []types.SyncDirectory{
		{LocalRoot: localRoot, RemoteRoot: "", Mode: types.ModeBidirectional, Recursive: true},
	}
	return opts
}

func TestSync_UploadsLocalOnlyFile(t *testing.T) {
	root := t.TempDir()
	store := localstore.New(root)
	require.NoError(t, store.WriteAtomic("new.txt", strings.NewReader("fresh content")))

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	remote := newFakeRemote(now)

	e := engine.New(engine.Config{
		Remote:      remote,
		Cache:       cache.New(types.CachePolicy{Enabled: false}, ""),
		ResumeStore: newMemoryResumeStore(),
		Clock:       func() time.Time { return now },
	}, types.AlgorithmSHA256)

	result, err := e.Sync(context.Background(), baseOptions(root))
	require.NoError(t, err)
	assert.Equal(t, types.ResultSuccess, result.Kind)
	assert.Equal(t, 1, result.Uploaded)

	entry, found, err := remote.FindByName(context.Background(), "new.txt")
	require.NoError(t, err)
	assert.True(t, found)
	assert.EqualValues(t, len("fresh content"), entry.Size)
}

func TestSync_DownloadsRemoteOnlyFile(t *testing.T) {
	root := t.TempDir()
	store := localstore.New(root)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	remote := newFakeRemote(now)
	remote.seed("doc.txt", "remote content", now)

	e := engine.New(engine.Config{
		Remote:      remote,
		Cache:       cache.New(types.CachePolicy{Enabled: false}, ""),
		ResumeStore: newMemoryResumeStore(),
		Clock:       func() time.Time { return now },
	}, types.AlgorithmSHA256)

	result, err := e.Sync(context.Background(), baseOptions(root))
	require.NoError(t, err)
	assert.Equal(t, types.ResultSuccess, result.Kind)
	assert.Equal(t, 1, result.Downloaded)

	rc, err := store.ReadStream("doc.txt")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "remote content", string(data))
}

func TestSync_ConflictNewerWinsPrefersLocal(t *testing.T) {
	root := t.TempDir()
	store := localstore.New(root)
	require.NoError(t, store.WriteAtomic("shared.txt", strings.NewReader("local version")))

	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	remote := newFakeRemote(now)
	remote.seed("shared.txt", "remote version", older)

	opts := baseOptions(root)
	opts.ConflictPolicy = types.PolicyNewerWins

	e := engine.New(engine.Config{
		Remote:      remote,
		Cache:       cache.New(types.CachePolicy{Enabled: false}, ""),
		ResumeStore: newMemoryResumeStore(),
		Clock:       func() time.Time { return now },
	}, types.AlgorithmSHA256)

	result, err := e.Sync(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, types.ResultSuccess, result.Kind)
	assert.Equal(t, 1, result.Uploaded)

	entry, found, err := remote.FindByName(context.Background(), "shared.txt")
	require.NoError(t, err)
	require.True(t, found)

	rc, err := remote.Download(context.Background(), entry.RemoteID)
	require.NoError(t, err)
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "local version", string(data))
}

func TestSync_KeepBothPreservesLocalAndRemoteUnderRenamedCopy(t *testing.T) {
	root := t.TempDir()
	store := localstore.New(root)
	require.NoError(t, store.WriteAtomic("e.txt", strings.NewReader("v1")))

	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	remote := newFakeRemote(now)
	remote.seed("e.txt", "v2", now)

	opts := baseOptions(root)
	opts.ConflictPolicy = types.PolicyKeepBoth

	e := engine.New(engine.Config{
		Remote:      remote,
		Cache:       cache.New(types.CachePolicy{Enabled: false}, ""),
		ResumeStore: newMemoryResumeStore(),
		Clock:       func() time.Time { return now },
	}, types.AlgorithmSHA256)

	result, err := e.Sync(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, types.ResultSuccess, result.Kind)

	conflictName := types.Path("e_conflict_" + now.UTC().Format("20060102150405") + ".txt")

	localOriginal, err := store.ReadStream("e.txt")
	require.NoError(t, err)
	originalData, _ := io.ReadAll(localOriginal)
	localOriginal.Close()
	assert.Equal(t, "v1", string(originalData), "local original must survive a keep-both resolution")

	localRenamed, err := store.ReadStream(conflictName)
	require.NoError(t, err)
	renamedData, _ := io.ReadAll(localRenamed)
	localRenamed.Close()
	assert.Equal(t, "v2", string(renamedData), "remote version must land locally under the renamed copy")

	remoteOriginal, found, err := remote.FindByName(context.Background(), "e.txt")
	require.NoError(t, err)
	require.True(t, found)
	rc, err := remote.Download(context.Background(), remoteOriginal.RemoteID)
	require.NoError(t, err)
	remoteOriginalData, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "v1", string(remoteOriginalData), "remote original name must end up holding the local (UseLocal) content")

	remoteRenamed, found, err := remote.FindByName(context.Background(), conflictName)
	require.NoError(t, err)
	require.True(t, found)
	rc2, err := remote.Download(context.Background(), remoteRenamed.RemoteID)
	require.NoError(t, err)
	remoteRenamedData, _ := io.ReadAll(rc2)
	rc2.Close()
	assert.Equal(t, "v2", string(remoteRenamedData), "remote must also keep the conflict-renamed copy")
}

func TestSync_ResumesAndSkipsAlreadyCompletedActions(t *testing.T) {
	root := t.TempDir()
	store := localstore.New(root)
	require.NoError(t, store.WriteAtomic("a.txt", strings.NewReader("local a")))
	require.NoError(t, store.WriteAtomic("b.txt", strings.NewReader("local b")))

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	remote := newFakeRemote(now)

	resumeStore := newMemoryResumeStore()
	const syncID = "fixed-sync-id"
	prior := types.NewResumeInfo(syncID, types.ModeBidirectional, nil, now)
	prior.MarkCompleted("a.txt")
	require.NoError(t, resumeStore.Save(prior))

	e := engine.New(engine.Config{
		Remote:      remote,
		Cache:       cache.New(types.CachePolicy{Enabled: false}, ""),
		ResumeStore: resumeStore,
		Clock:       func() time.Time { return now },
		NewSyncID:   func() string { return syncID },
	}, types.AlgorithmSHA256)

	result, err := e.Sync(context.Background(), baseOptions(root))
	require.NoError(t, err)
	assert.Equal(t, types.ResultSuccess, result.Kind)
	assert.Equal(t, 1, result.Uploaded, "a.txt was already completed by a prior run and must be skipped")
	assert.Equal(t, 2, result.Succeeded, "a.txt counts as succeeded via resume, b.txt via this run's upload")

	_, found, err := remote.FindByName(context.Background(), "a.txt")
	require.NoError(t, err)
	assert.False(t, found, "a.txt must not be uploaded again since it was already marked completed")

	_, found, err = remote.FindByName(context.Background(), "b.txt")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSync_MirrorToCloudDeletesRemoteExtras(t *testing.T) {
	root := t.TempDir()
	store := localstore.New(root)
	require.NoError(t, store.WriteAtomic("keep.txt", strings.NewReader("keep me")))

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	remote := newFakeRemote(now)
	remote.seed("extra.txt", "should be deleted", now)

	opts := baseOptions(root)
	opts.SyncDirectories[0].Mode = types.ModeMirrorToCloud

	e := engine.New(engine.Config{
		Remote:      remote,
		Cache:       cache.New(types.CachePolicy{Enabled: false}, ""),
		ResumeStore: newMemoryResumeStore(),
		Clock:       func() time.Time { return now },
	}, types.AlgorithmSHA256)

	result, err := e.Sync(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Uploaded)
	assert.Equal(t, 1, result.Deleted)

	_, found, err := remote.FindByName(context.Background(), "extra.txt")
	require.NoError(t, err)
	assert.False(t, found)
}
