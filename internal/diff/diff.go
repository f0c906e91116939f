// Package diff compares a local and a remote Manifest and produces the
// ordered list of SyncAction the engine should execute, generalized from
// the teacher's planSyncOperations/determineSyncOperation in
// enhanced_engine.go: there, 4 SyncStrategy values drove a per-path
// decision over two map[string]*FileMetadata; here, spec.md §3's 5
// SyncMode values drive the same decision over two ordered Manifests, with
// deterministic lexicographic ordering and deletions scheduled before
// creations per spec.md §4.G.
package diff

import (
	"sort"
	"time"

	"github.com/scottgl9/android-google-drive-sync-sub001/pkg/types"
)

// modifiedTimeTolerance is spec.md §4.G's allowance for clock skew and
// filesystem mtime resolution when checksums aren't available on both
// sides to compare directly.
const modifiedTimeTolerance = 2 * time.Second

// Planner computes the action list for one pair of manifests under one
// SyncMode.
type Planner struct{}

// NewPlanner returns a Planner. It holds no state; sync mode decisions are
// pure functions of (local entry, remote entry, mode).
func NewPlanner() *Planner { return &Planner{} }

// Plan returns the SyncAction list comparing local against remote under
// mode, every deletion ordered before any non-deletion, each group sorted
// lexicographically by path.
func (p *Planner) Plan(local, remote *types.Manifest, mode types.SyncMode) []types.SyncAction {
	paths := unionPaths(local, remote)

	var deletions, rest []types.SyncAction

	for _, path := range paths {
		localEntry, inLocal := local.Get(path)
		remoteEntry, inRemote := remote.Get(path)

		action := p.decide(path, localEntry, inLocal, remoteEntry, inRemote, mode)
		if action.Kind == types.ActionNone {
			continue
		}
		if action.Kind == types.ActionDeleteLocal || action.Kind == types.ActionDeleteRemote {
			deletions = append(deletions, action)
		} else {
			rest = append(rest, action)
		}
	}

	sortByPath(deletions)
	sortByPath(rest)

	return append(deletions, rest...)
}

func (p *Planner) decide(path types.Path, localEntry types.ManifestEntry, inLocal bool, remoteEntry types.ManifestEntry, inRemote bool, mode types.SyncMode) types.SyncAction {
	switch {
	case inLocal && !inRemote:
		return p.decideLocalOnly(path, mode)
	case !inLocal && inRemote:
		return p.decideRemoteOnly(path, mode)
	case inLocal && inRemote:
		return p.decideBothPresent(path, localEntry, remoteEntry, mode)
	default:
		return types.SyncAction{Kind: types.ActionNone, Path: path}
	}
}

func (p *Planner) decideLocalOnly(path types.Path, mode types.SyncMode) types.SyncAction {
	switch mode {
	case types.ModeBidirectional, types.ModeUploadOnly, types.ModeMirrorToCloud:
		return types.SyncAction{Kind: types.ActionUpload, Path: path, Reason: "present only locally"}
	case types.ModeDownloadOnly:
		return types.SyncAction{Kind: types.ActionNone, Path: path}
	case types.ModeMirrorFromCloud:
		return types.SyncAction{Kind: types.ActionDeleteLocal, Path: path, Reason: "absent remotely, mirroring from cloud"}
	default:
		return types.SyncAction{Kind: types.ActionNone, Path: path}
	}
}

func (p *Planner) decideRemoteOnly(path types.Path, mode types.SyncMode) types.SyncAction {
	switch mode {
	case types.ModeBidirectional, types.ModeDownloadOnly, types.ModeMirrorFromCloud:
		return types.SyncAction{Kind: types.ActionDownload, Path: path, Reason: "present only remotely"}
	case types.ModeUploadOnly:
		return types.SyncAction{Kind: types.ActionNone, Path: path}
	case types.ModeMirrorToCloud:
		return types.SyncAction{Kind: types.ActionDeleteRemote, Path: path, Reason: "absent locally, mirroring to cloud"}
	default:
		return types.SyncAction{Kind: types.ActionNone, Path: path}
	}
}

func (p *Planner) decideBothPresent(path types.Path, localEntry, remoteEntry types.ManifestEntry, mode types.SyncMode) types.SyncAction {
	if entriesEqual(localEntry, remoteEntry) {
		return types.SyncAction{Kind: types.ActionNone, Path: path}
	}

	switch mode {
	case types.ModeUploadOnly:
		return types.SyncAction{Kind: types.ActionUpload, Path: path, Reason: "differs, upload-only mode"}
	case types.ModeDownloadOnly:
		return types.SyncAction{Kind: types.ActionDownload, Path: path, Reason: "differs, download-only mode"}
	case types.ModeMirrorToCloud:
		return types.SyncAction{Kind: types.ActionUpload, Path: path, Reason: "differs, local is the source of truth"}
	case types.ModeMirrorFromCloud:
		return types.SyncAction{Kind: types.ActionDownload, Path: path, Reason: "differs, remote is the source of truth"}
	case types.ModeBidirectional:
		return types.SyncAction{Kind: types.ActionConflict, Path: path, Reason: "changed on both sides"}
	default:
		return types.SyncAction{Kind: types.ActionNone, Path: path}
	}
}

// entriesEqual implements spec.md §4.G's content-equality rule: equal
// checksums settle it when both sides have one; otherwise the entries are
// equal only if the size matches and the modified times are within
// modifiedTimeTolerance of each other.
func entriesEqual(a, b types.ManifestEntry) bool {
	if a.Checksum != "" && b.Checksum != "" {
		return a.Checksum == b.Checksum
	}
	if a.Size != b.Size {
		return false
	}

	delta := a.ModifiedTime.Sub(b.ModifiedTime)
	if delta < 0 {
		delta = -delta
	}
	return delta <= modifiedTimeTolerance
}

func unionPaths(local, remote *types.Manifest) []types.Path {
	seen := make(map[types.Path]bool, len(local.Files)+len(remote.Files))
	var out []types.Path
	for _, p := range local.SortedPaths() {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, p := range remote.SortedPaths() {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortByPath(actions []types.SyncAction) {
	sort.Slice(actions, func(i, j int) bool { return actions[i].Path < actions[j].Path })
}
