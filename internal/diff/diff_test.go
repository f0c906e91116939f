package diff_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottgl9/android-google-drive-sync-sub001/internal/diff"
	"github.com/scottgl9/android-google-drive-sync-sub001/pkg/types"
)

func manifestWith(entries ...types.ManifestEntry) *types.Manifest {
	m := types.NewManifest(time.Now())
	for _, e := range entries {
		m.Put(e)
	}
	return m
}

func entry(path, checksum string, size uint64) types.ManifestEntry {
	return types.ManifestEntry{RelativePath: types.Path(path), Name: types.Path(path).Name(), Size: size, Checksum: checksum}
}

func TestPlan_Bidirectional_LocalOnlyUploads(t *testing.T) {
	local := manifestWith(entry("a.txt", "h1", 5))
	remote := manifestWith()

	actions := diff.NewPlanner().Plan(local, remote, types.ModeBidirectional)
	require.Len(t, actions, 1)
	assert.Equal(t, types.ActionUpload, actions[0].Kind)
	assert.Equal(t, types.Path("a.txt"), actions[0].Path)
}

func TestPlan_Bidirectional_RemoteOnlyDownloads(t *testing.T) {
	local := manifestWith()
	remote := manifestWith(entry("a.txt", "h1", 5))

	actions := diff.NewPlanner().Plan(local, remote, types.ModeBidirectional)
	require.Len(t, actions, 1)
	assert.Equal(t, types.ActionDownload, actions[0].Kind)
}

func TestPlan_Bidirectional_BothDifferIsConflict(t *testing.T) {
	local := manifestWith(entry("a.txt", "h1", 5))
	remote := manifestWith(entry("a.txt", "h2", 6))

	actions := diff.NewPlanner().Plan(local, remote, types.ModeBidirectional)
	require.Len(t, actions, 1)
	assert.Equal(t, types.ActionConflict, actions[0].Kind)
}

func TestPlan_Bidirectional_BothSameIsNoAction(t *testing.T) {
	local := manifestWith(entry("a.txt", "h1", 5))
	remote := manifestWith(entry("a.txt", "h1", 5))

	actions := diff.NewPlanner().Plan(local, remote, types.ModeBidirectional)
	assert.Empty(t, actions)
}

func TestPlan_UploadOnly_IgnoresRemoteOnlyFiles(t *testing.T) {
	local := manifestWith(entry("a.txt", "h1", 5))
	remote := manifestWith(entry("b.txt", "h2", 6))

	actions := diff.NewPlanner().Plan(local, remote, types.ModeUploadOnly)
	require.Len(t, actions, 1)
	assert.Equal(t, types.ActionUpload, actions[0].Kind)
	assert.Equal(t, types.Path("a.txt"), actions[0].Path)
}

func TestPlan_DownloadOnly_IgnoresLocalOnlyFiles(t *testing.T) {
	local := manifestWith(entry("a.txt", "h1", 5))
	remote := manifestWith(entry("b.txt", "h2", 6))

	actions := diff.NewPlanner().Plan(local, remote, types.ModeDownloadOnly)
	require.Len(t, actions, 1)
	assert.Equal(t, types.ActionDownload, actions[0].Kind)
	assert.Equal(t, types.Path("b.txt"), actions[0].Path)
}

func TestPlan_MirrorToCloud_DeletesRemoteExtras(t *testing.T) {
	local := manifestWith(entry("a.txt", "h1", 5))
	remote := manifestWith(entry("extra.txt", "h9", 9))

	actions := diff.NewPlanner().Plan(local, remote, types.ModeMirrorToCloud)
	require.Len(t, actions, 2)
	// deletions ordered before creations
	assert.Equal(t, types.ActionDeleteRemote, actions[0].Kind)
	assert.Equal(t, types.ActionUpload, actions[1].Kind)
}

func TestPlan_MirrorFromCloud_DeletesLocalExtras(t *testing.T) {
	local := manifestWith(entry("extra.txt", "h9", 9))
	remote := manifestWith(entry("a.txt", "h1", 5))

	actions := diff.NewPlanner().Plan(local, remote, types.ModeMirrorFromCloud)
	require.Len(t, actions, 2)
	assert.Equal(t, types.ActionDeleteLocal, actions[0].Kind)
	assert.Equal(t, types.ActionDownload, actions[1].Kind)
}

func TestPlan_Bidirectional_NoChecksumSameMtimeIsNoAction(t *testing.T) {
	when := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	local := manifestWith(types.ManifestEntry{RelativePath: "a.txt", Name: "a.txt", Size: 5, ModifiedTime: when})
	remote := manifestWith(types.ManifestEntry{RelativePath: "a.txt", Name: "a.txt", Size: 5, ModifiedTime: when.Add(time.Second)})

	actions := diff.NewPlanner().Plan(local, remote, types.ModeBidirectional)
	assert.Empty(t, actions)
}

func TestPlan_Bidirectional_NoChecksumStaleMtimeIsConflict(t *testing.T) {
	when := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	local := manifestWith(types.ManifestEntry{RelativePath: "a.txt", Name: "a.txt", Size: 5, ModifiedTime: when})
	remote := manifestWith(types.ManifestEntry{RelativePath: "a.txt", Name: "a.txt", Size: 5, ModifiedTime: when.Add(10 * time.Second)})

	actions := diff.NewPlanner().Plan(local, remote, types.ModeBidirectional)
	require.Len(t, actions, 1)
	assert.Equal(t, types.ActionConflict, actions[0].Kind)
}

func TestPlan_DeterministicLexicographicOrderingWithinGroup(t *testing.T) {
	local := manifestWith(entry("z.txt", "h1", 5), entry("a.txt", "h2", 5))
	remote := manifestWith()

	actions := diff.NewPlanner().Plan(local, remote, types.ModeUploadOnly)
	require.Len(t, actions, 2)
	assert.Equal(t, types.Path("a.txt"), actions[0].Path)
	assert.Equal(t, types.Path("z.txt"), actions[1].Path)
}
