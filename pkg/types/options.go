package types

import "time"

// SyncMode controls which side(s) of a tree may be mutated by a sync.
type SyncMode int

const (
	ModeBidirectional SyncMode = iota
	ModeUploadOnly
	ModeDownloadOnly
	ModeMirrorToCloud
	ModeMirrorFromCloud
)

// String implements fmt.Stringer.
func (m SyncMode) String() string {
	switch m {
	case ModeBidirectional:
		return "bidirectional"
	case ModeUploadOnly:
		return "upload_only"
	case ModeDownloadOnly:
		return "download_only"
	case ModeMirrorToCloud:
		return "mirror_to_cloud"
	case ModeMirrorFromCloud:
		return "mirror_from_cloud"
	default:
		return "unknown"
	}
}

// IsMirror reports whether m is one of the two mirror modes, which never
// produce conflicts — the designated source always wins.
func (m SyncMode) IsMirror() bool {
	return m == ModeMirrorToCloud || m == ModeMirrorFromCloud
}

// ConflictPolicy selects how ConflictResolver settles a path that changed
// on both sides.
type ConflictPolicy int

const (
	PolicyLocalWins ConflictPolicy = iota
	PolicyRemoteWins
	PolicyNewerWins
	PolicyKeepBoth
	PolicySkip
	PolicyAskUser
)

// String implements fmt.Stringer.
func (p ConflictPolicy) String() string {
	switch p {
	case PolicyLocalWins:
		return "local_wins"
	case PolicyRemoteWins:
		return "remote_wins"
	case PolicyNewerWins:
		return "newer_wins"
	case PolicyKeepBoth:
		return "keep_both"
	case PolicySkip:
		return "skip"
	case PolicyAskUser:
		return "ask_user"
	default:
		return "unknown"
	}
}

// NetworkPolicy restricts which connections a sync may run over. Enforcement
// lives with the (external) network-reachability sensor; the engine only
// consults it before starting a sync.
type NetworkPolicy int

const (
	NetworkAny NetworkPolicy = iota
	NetworkUnmeteredOnly
	NetworkWifiOnly
	NetworkNotRoaming
)

// EncryptionMode selects the at-rest encryption envelope, if any.
type EncryptionMode int

const (
	EncryptionNone EncryptionMode = iota
	EncryptionDeviceKeystore
	EncryptionPassphrase
)

// EncryptionConfig configures the CryptoEnvelope pipeline.
type EncryptionConfig struct {
	Mode       EncryptionMode
	Passphrase string
}

// RetryPolicy configures retry/backoff for remote operations.
type RetryPolicy struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	Multiplier      float64
	RetryableErrors []ErrorClass
}

// DefaultRetryPolicy matches spec.md §6's default row.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		RetryableErrors: []ErrorClass{
			ErrorClassTransport,
			ErrorClassRateLimited,
			ErrorClassServiceUnavailable,
		},
	}
}

// CachePolicy configures the MetadataCache.
type CachePolicy struct {
	Enabled    bool
	MaxAge     time.Duration
	MaxEntries int
}

// DefaultCachePolicy matches spec.md §6's default row.
func DefaultCachePolicy() CachePolicy {
	return CachePolicy{Enabled: true, MaxAge: 1 * time.Hour, MaxEntries: 10000}
}

// Schedule configures the background scheduler collaborator.
type Schedule struct {
	Interval        time.Duration
	Flex            time.Duration
	Charging        bool
	BatteryNotLow   bool
}

// DefaultSchedule matches spec.md §6's default row.
func DefaultSchedule() Schedule {
	return Schedule{Interval: 12 * time.Hour, Flex: 2 * time.Hour, Charging: false, BatteryNotLow: true}
}

// FileFilter is a pure predicate over a filesystem entry. Concrete variants
// live in internal/filter; this package only names the contract so that
// SyncOptions can hold filters without creating an import cycle between
// pkg/types and internal/filter.
type FileFilter interface {
	Accept(entry FilterEntry) bool
}

// FilterEntry is the minimal filesystem-entry view a FileFilter inspects.
type FilterEntry struct {
	Name     string
	Path     Path
	Size     uint64
	IsHidden bool
}

// SyncDirectory is one local<->remote pairing the engine should reconcile.
type SyncDirectory struct {
	LocalRoot  string
	RemoteRoot string
	Mode       SyncMode
	Recursive  bool
}

// SyncOptions is the builder-shaped configuration surface from spec.md §6.
type SyncOptions struct {
	AppFolderName       string
	SyncDirectories     []SyncDirectory
	FileFilters         []FileFilter
	ConflictPolicy      ConflictPolicy
	ChecksumAlgorithm   Algorithm
	NetworkPolicy       NetworkPolicy
	Retry               RetryPolicy
	Cache               CachePolicy
	Encryption          EncryptionConfig
	Schedule            Schedule
	MaxParallelTransfers int
}

// DefaultSyncOptions returns the spec.md §6 defaults, requiring only that
// the caller set AppFolderName and SyncDirectories.
func DefaultSyncOptions(appFolderName string) SyncOptions {
	return SyncOptions{
		AppFolderName:        appFolderName,
		ConflictPolicy:       PolicyNewerWins,
		ChecksumAlgorithm:    AlgorithmMD5,
		NetworkPolicy:        NetworkAny,
		Retry:                DefaultRetryPolicy(),
		Cache:                DefaultCachePolicy(),
		Encryption:           EncryptionConfig{Mode: EncryptionNone},
		Schedule:             DefaultSchedule(),
		MaxParallelTransfers: 1,
	}
}
