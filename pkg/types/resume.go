package types

import "time"

// ResumeInfo is the durable record that lets SyncEngine continue an
// interrupted sync without redoing completed work.
type ResumeInfo struct {
	SyncID         string       `json:"sync_id"`
	StartedAt      time.Time    `json:"started_at_ms"`
	Mode           SyncMode     `json:"mode"`
	CompletedPaths map[Path]bool `json:"completed_paths"`
	LastCheckpoint time.Time    `json:"last_checkpoint_ms"`
	PendingPlan    []SyncAction `json:"pending_plan"`
}

// NewResumeInfo creates a fresh ResumeInfo for a new sync run.
func NewResumeInfo(syncID string, mode SyncMode, plan []SyncAction, startedAt time.Time) *ResumeInfo {
	return &ResumeInfo{
		SyncID:         syncID,
		StartedAt:      startedAt,
		Mode:           mode,
		CompletedPaths: make(map[Path]bool),
		LastCheckpoint: startedAt,
		PendingPlan:    plan,
	}
}

// MarkCompleted records that path finished successfully and removes any
// still-pending action for it.
func (r *ResumeInfo) MarkCompleted(path Path) {
	r.CompletedPaths[path] = true

	filtered := r.PendingPlan[:0]
	for _, action := range r.PendingPlan {
		if action.Path != path {
			filtered = append(filtered, action)
		}
	}
	r.PendingPlan = filtered
}

// IsCompleted reports whether path was already handled by a prior,
// interrupted run.
func (r *ResumeInfo) IsCompleted(path Path) bool {
	return r.CompletedPaths[path]
}
