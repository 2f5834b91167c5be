package workspace

import (
	"github.com/google/uuid"
	"github.com/jonathan/pallybot/internal/types"
)

// NoJobSelectedLabel is the picker entry for running an interview without a job description.
const NoJobSelectedLabel = "No specific job selected"

// View is an immutable snapshot of a session. Workspace is nil unless the session is
// authenticated, so nothing of the workspace can be rendered for an unauthenticated caller.
type View struct {
	Session   SessionState   `json:"session"`
	Workspace *WorkspaceView `json:"workspace,omitempty"`
}

// WorkspaceView is the authenticated part of a snapshot.
type WorkspaceView struct {
	ActiveTab   TabID                  `json:"active_tab"`
	SidebarOpen bool                   `json:"sidebar_open"`
	Jobs        []types.JobDescription `json:"jobs"`
	SelectedID  *uuid.UUID             `json:"selected_id,omitempty"`
}

// Selected returns the bound job from the snapshot.
func (w *WorkspaceView) Selected() (types.JobDescription, bool) {
	if w == nil || w.SelectedID == nil {
		return types.JobDescription{}, false
	}
	for _, job := range w.Jobs {
		if job.ID == *w.SelectedID {
			return job, true
		}
	}
	return types.JobDescription{}, false
}

// Summaries returns the job cards for the jobs tab.
func (w *WorkspaceView) Summaries() []types.JobSummary {
	if w == nil {
		return nil
	}
	out := make([]types.JobSummary, 0, len(w.Jobs))
	for _, job := range w.Jobs {
		out = append(out, job.Summary())
	}
	return out
}

// JobOption is one entry of the interview job picker.
type JobOption struct {
	ID       uuid.UUID `json:"id"`
	Label    string    `json:"label"`
	Selected bool      `json:"selected"`
}

// JobOptions returns the interview job picker entries. The picker is only offered when the
// catalog is non-empty; the first entry (uuid.Nil) clears the selection.
func (w *WorkspaceView) JobOptions() []JobOption {
	if w == nil || len(w.Jobs) == 0 {
		return nil
	}
	out := make([]JobOption, 0, len(w.Jobs)+1)
	out = append(out, JobOption{ID: uuid.Nil, Label: NoJobSelectedLabel, Selected: w.SelectedID == nil})
	for _, job := range w.Jobs {
		out = append(out, JobOption{
			ID:       job.ID,
			Label:    job.OptionLabel(),
			Selected: w.SelectedID != nil && *w.SelectedID == job.ID,
		})
	}
	return out
}
