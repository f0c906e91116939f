// Package progress reports live sync status and periodically checkpoints a
// ResumeInfo, generalized from the teacher's
// internal/sync/progress_tracker.go (ProgressTracker, ProgressInfo,
// ProgressNotifier's callback list + ticker) into spec.md §4.J's Phase
// state machine and bounded, drop-oldest event channel.
package progress

import (
	"sync"
	"time"

	"github.com/scottgl9/android-google-drive-sync-sub001/pkg/types"
)

// Phase names where in its lifecycle a sync currently is.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAuthenticating
	PhaseBuildingManifests
	PhasePlanning
	PhaseTransferring
	PhaseFinalizing
	PhaseDone
	PhaseFailed
	PhaseCancelled
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAuthenticating:
		return "authenticating"
	case PhaseBuildingManifests:
		return "building_manifests"
	case PhasePlanning:
		return "planning"
	case PhaseTransferring:
		return "transferring"
	case PhaseFinalizing:
		return "finalizing"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	case PhaseCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Event is one observable progress update, generalizing the teacher's
// ProgressInfo struct.
type Event struct {
	Phase          Phase
	CurrentPath    types.Path
	ActionsDone    int
	ActionsTotal   int
	BytesDone      int64
	BytesTotal     int64
	Message        string
	At             time.Time
}

const (
	eventChannelCapacity  = 64
	checkpointInterval    = 2 * time.Second
	checkpointEveryNItems = 16
)

// Tracker fans out Events to every subscribed channel (bounded,
// drop-oldest on overflow, per spec.md §4.J/§5) and checkpoints a
// ResumeInfo via checkpointFn at most every checkpointInterval or every
// checkpointEveryNItems completed actions, whichever comes first.
type Tracker struct {
	mu            sync.Mutex
	subscribers   []chan Event
	phase         Phase
	actionsDone   int
	actionsTotal  int
	bytesDone     int64
	bytesTotal    int64

	checkpointFn      func(done int)
	lastCheckpointAt  time.Time
	sinceCheckpoint   int
	now               func() time.Time
}

// NewTracker returns an idle Tracker. checkpointFn may be nil to disable
// checkpointing; now defaults to time.Now if nil.
func NewTracker(checkpointFn func(done int), now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		phase:            PhaseIdle,
		checkpointFn:     checkpointFn,
		now:              now,
		lastCheckpointAt: now(),
	}
}

// SetCheckpoint installs or replaces the checkpoint callback, letting a
// caller that already built its own Tracker still receive periodic
// checkpoints once it hands the Tracker to an Engine.
func (t *Tracker) SetCheckpoint(fn func(done int)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.checkpointFn = fn
}

// Subscribe returns a channel that receives every Event emitted from now
// on. The channel is bounded; if a subscriber falls behind, the oldest
// buffered event is dropped to make room for the newest, so a slow UI
// never blocks the sync itself.
func (t *Tracker) Subscribe() <-chan Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan Event, eventChannelCapacity)
	t.subscribers = append(t.subscribers, ch)
	return ch
}

// SetTotals records the planned work size once a plan exists.
func (t *Tracker) SetTotals(actionsTotal int, bytesTotal int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.actionsTotal = actionsTotal
	t.bytesTotal = bytesTotal
}

// EnterPhase transitions to phase and emits an Event.
func (t *Tracker) EnterPhase(phase Phase, message string) {
	t.mu.Lock()
	t.phase = phase
	event := t.snapshotLocked(message)
	t.mu.Unlock()
	t.publish(event)
}

// CompleteAction records one finished action (upload/download/delete/etc)
// and emits an Event, checkpointing if the interval or item-count
// threshold has elapsed.
func (t *Tracker) CompleteAction(path types.Path, bytes int64) {
	t.mu.Lock()
	t.actionsDone++
	t.bytesDone += bytes
	t.sinceCheckpoint++
	event := t.snapshotLocked("")
	event.CurrentPath = path

	shouldCheckpoint := false
	now := t.now()
	if t.checkpointFn != nil {
		if t.sinceCheckpoint >= checkpointEveryNItems || now.Sub(t.lastCheckpointAt) >= checkpointInterval {
			shouldCheckpoint = true
			t.sinceCheckpoint = 0
			t.lastCheckpointAt = now
		}
	}
	done := t.actionsDone
	t.mu.Unlock()

	t.publish(event)
	if shouldCheckpoint {
		t.checkpointFn(done)
	}
}

func (t *Tracker) snapshotLocked(message string) Event {
	return Event{
		Phase:        t.phase,
		ActionsDone:  t.actionsDone,
		ActionsTotal: t.actionsTotal,
		BytesDone:    t.bytesDone,
		BytesTotal:   t.bytesTotal,
		Message:      message,
		At:           t.now(),
	}
}

func (t *Tracker) publish(event Event) {
	t.mu.Lock()
	subs := append([]chan Event(nil), t.subscribers...)
	t.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
			// Drop the oldest buffered event to make room, rather than
			// blocking the sync on a slow subscriber.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- event:
			default:
			}
		}
	}
}
