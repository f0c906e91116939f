// Package conflict resolves a file that changed on both sides of a
// bidirectional sync, generalized from the teacher's
// internal/sync/conflict_handler.go (resolveByNewest, resolveByLargest,
// resolveKeepBoth's timestamp-suffixed copy, resolveManual) into the 6
// ConflictPolicy values spec.md §4.H names, including a new AskUser policy
// the teacher has no equivalent for — added in the teacher's own idiom of a
// strategy-dispatch switch over the policy enum.
package conflict

import (
	"fmt"
	"time"

	"github.com/scottgl9/android-google-drive-sync-sub001/pkg/types"
)

// Pair is the local/remote state of one path under dispute.
type Pair struct {
	Path   types.Path
	Local  types.ManifestEntry
	Remote types.ManifestEntry
}

// Outcome names what the resolver decided to do about a conflicted path.
type Outcome int

const (
	// OutcomeUpload pushes the local version to the remote, overwriting it.
	OutcomeUpload Outcome = iota
	// OutcomeDownload pulls the remote version, overwriting the local file.
	OutcomeDownload
	// OutcomeKeepBoth keeps the local version at the original path (and
	// uploads it there) and saves the remote version under a new name on
	// both sides, keeping both.
	OutcomeKeepBoth
	// OutcomeSkip leaves both sides untouched.
	OutcomeSkip
)

// Resolution is the decision for one conflicted Pair.
type Resolution struct {
	Outcome Outcome
	// KeptBothSuffix is the path assigned to the renamed copy of the remote
	// version when Outcome is OutcomeKeepBoth.
	KeptBothSuffix types.Path
}

// AskUserFunc is consulted for PolicyAskUser. Implementations should block
// until the user responds or the timeout elapses; timing out downgrades to
// PolicySkip per spec.md §4.H.
type AskUserFunc func(pair Pair) (ConflictPolicy, bool)

// ConflictPolicy mirrors types.ConflictPolicy, restricted to the
// non-interactive policies an AskUserFunc may resolve to.
type ConflictPolicy = types.ConflictPolicy

// Resolver applies a ConflictPolicy to a conflicted Pair.
type Resolver struct {
	askUser    AskUserFunc
	askTimeout time.Duration
	now        func() time.Time
}

// NewResolver returns a Resolver. askUser may be nil if PolicyAskUser is
// never used; now defaults to time.Now if nil.
func NewResolver(askUser AskUserFunc, askTimeout time.Duration, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{askUser: askUser, askTimeout: askTimeout, now: now}
}

// Resolve decides the Resolution for pair under policy.
func (r *Resolver) Resolve(policy types.ConflictPolicy, pair Pair) (Resolution, error) {
	switch policy {
	case types.PolicyLocalWins:
		return Resolution{Outcome: OutcomeUpload}, nil
	case types.PolicyRemoteWins:
		return Resolution{Outcome: OutcomeDownload}, nil
	case types.PolicyNewerWins:
		return r.resolveByNewest(pair), nil
	case types.PolicyKeepBoth:
		return r.resolveKeepBoth(pair), nil
	case types.PolicySkip:
		return Resolution{Outcome: OutcomeSkip}, nil
	case types.PolicyAskUser:
		return r.resolveAskUser(pair)
	default:
		return Resolution{}, fmt.Errorf("conflict: unknown policy %v", policy)
	}
}

// resolveByNewest picks whichever side has the later modification time,
// generalized from the teacher's resolveByNewest (file.ModTime().After
// comparison). Ties resolve to the local side, per spec.md §4.H.
func (r *Resolver) resolveByNewest(pair Pair) Resolution {
	if pair.Remote.ModifiedTime.After(pair.Local.ModifiedTime) {
		return Resolution{Outcome: OutcomeDownload}
	}
	return Resolution{Outcome: OutcomeUpload}
}

// resolveKeepBoth keeps the local file at its original path and uploads it
// as-is (UseLocal), and assigns the remote version a UTC timestamp-suffixed
// name to be kept alongside it on both sides, generalized from the
// teacher's resolveKeepBoth ("%s_conflict_local_%s%s" naming) into
// spec.md's fixed "_conflict_<UTC yyyymmddHHMMSS>" format.
func (r *Resolver) resolveKeepBoth(pair Pair) Resolution {
	suffix := r.now().UTC().Format("20060102150405")
	renamed := renameWithConflictSuffix(pair.Path, suffix)
	return Resolution{Outcome: OutcomeKeepBoth, KeptBothSuffix: renamed}
}

func renameWithConflictSuffix(path types.Path, suffix string) types.Path {
	s := string(path)
	ext := ""
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			ext = s[i:]
			s = s[:i]
			break
		}
		if s[i] == '/' {
			break
		}
	}
	return types.Path(fmt.Sprintf("%s_conflict_%s%s", s, suffix, ext))
}

// resolveAskUser consults askUser, downgrading to PolicySkip if it isn't
// configured or the user doesn't answer in time.
func (r *Resolver) resolveAskUser(pair Pair) (Resolution, error) {
	if r.askUser == nil {
		return Resolution{Outcome: OutcomeSkip}, nil
	}

	decided, answered := r.askUser(pair)
	if !answered {
		return Resolution{Outcome: OutcomeSkip}, nil
	}
	if decided == types.PolicyAskUser {
		return Resolution{}, fmt.Errorf("conflict: askUser callback must not itself return PolicyAskUser")
	}
	return r.Resolve(decided, pair)
}
