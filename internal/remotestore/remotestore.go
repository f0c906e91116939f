// Package remotestore defines the RemoteStore contract spec.md §4.E
// requires of any cloud-drive backend, independent of which provider's API
// sits behind it. internal/remotestore/zoho supplies the concrete adapter
// for the teacher's own provider, generalized from its REST client.
package remotestore

import (
	"context"
	"io"
	"time"

	"github.com/scottgl9/android-google-drive-sync-sub001/pkg/types"
)

// Entry describes one remote file or folder as returned by ListRecursive/FindByName.
type Entry struct {
	RemoteID     string
	RelativePath types.Path
	Name         string
	IsDir        bool
	Size         uint64
	ModifiedTime time.Time
	// Checksum is whatever content digest the provider supplies directly
	// (Zoho WorkDrive returns MD5), absent if the provider doesn't offer one.
	Checksum string
}

// RemoteStore is the minimal surface the engine needs from a cloud-drive
// backend: recursive listing, content transfer, deletion, and folder
// provisioning, per spec.md §4.E.
type RemoteStore interface {
	// EnsureFolderStructure creates every missing folder on the path from
	// the app root down to dir, returning the remote id of dir.
	EnsureFolderStructure(ctx context.Context, dir types.Path) (string, error)

	// ListRecursive returns every file (not folder) under root, with
	// relative paths expressed against root.
	ListRecursive(ctx context.Context, root types.Path) ([]Entry, error)

	// Upload streams content to relPath, creating or replacing it, and
	// returns the entry assigned by the remote store.
	Upload(ctx context.Context, relPath types.Path, content io.Reader, size uint64) (Entry, error)

	// Download opens a stream for remoteID. The caller must Close it.
	Download(ctx context.Context, remoteID string) (io.ReadCloser, error)

	// Delete removes remoteID. Deleting an already-absent id is not an
	// error.
	Delete(ctx context.Context, remoteID string) error

	// FindByName looks up a single file by its relative path, reporting
	// (entry, true, nil) if found, (zero, false, nil) if absent.
	FindByName(ctx context.Context, relPath types.Path) (Entry, bool, error)
}
