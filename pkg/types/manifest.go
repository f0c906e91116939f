package types

import (
	"sort"
	"time"
)

// Algorithm identifies a checksum algorithm used to fingerprint file content.
type Algorithm int

const (
	// AlgorithmMD5 hashes content with MD5 (the Zoho WorkDrive default,
	// since the remote API supplies MD5 digests directly).
	AlgorithmMD5 Algorithm = iota
	// AlgorithmSHA256 hashes content with SHA-256.
	AlgorithmSHA256
)

// String implements fmt.Stringer.
func (a Algorithm) String() string {
	switch a {
	case AlgorithmMD5:
		return "md5"
	case AlgorithmSHA256:
		return "sha256"
	default:
		return "unknown"
	}
}

// ManifestEntry describes one file's state on one side (local or remote) of
// a sync.
type ManifestEntry struct {
	RelativePath Path      `json:"relative_path"`
	Name         string    `json:"name"`
	Size         uint64    `json:"size"`
	ModifiedTime time.Time `json:"modified_time"`
	// Checksum is hex-encoded lowercase, absent if not yet computed.
	Checksum string `json:"checksum,omitempty"`
	// RemoteID is the opaque id assigned by the remote store. Present only
	// on remote entries.
	RemoteID string `json:"remote_id,omitempty"`
}

// Manifest is a snapshot of a tree: every normalized relative path mapped to
// its entry, plus the instant the snapshot was taken.
type Manifest struct {
	Files     map[Path]ManifestEntry `json:"entries"`
	CreatedAt time.Time              `json:"created_at_ms"`
}

// NewManifest returns an empty manifest stamped with createdAt.
func NewManifest(createdAt time.Time) *Manifest {
	return &Manifest{
		Files:     make(map[Path]ManifestEntry),
		CreatedAt: createdAt,
	}
}

// Put inserts or replaces an entry, keyed by its own relative path.
func (m *Manifest) Put(entry ManifestEntry) {
	m.Files[entry.RelativePath] = entry
}

// Get returns the entry for path and whether it was present.
func (m *Manifest) Get(path Path) (ManifestEntry, bool) {
	e, ok := m.Files[path]
	return e, ok
}

// SortedPaths returns every key in lexicographic order, the iteration order
// the data model requires for determinism.
func (m *Manifest) SortedPaths() []Path {
	paths := make([]Path, 0, len(m.Files))
	for p := range m.Files {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })
	return paths
}

// Equal reports whether two manifests describe the same paths, sizes and
// checksums, ignoring RemoteID (property 4 in spec.md §8: "modulo
// remote_id").
func (m *Manifest) Equal(other *Manifest) bool {
	if len(m.Files) != len(other.Files) {
		return false
	}
	for path, entry := range m.Files {
		otherEntry, ok := other.Files[path]
		if !ok {
			return false
		}
		if entry.Size != otherEntry.Size {
			return false
		}
		if entry.Checksum != "" && otherEntry.Checksum != "" && entry.Checksum != otherEntry.Checksum {
			return false
		}
	}
	return true
}
