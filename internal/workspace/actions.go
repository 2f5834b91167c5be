package workspace

import (
	"github.com/google/uuid"
	"github.com/jonathan/pallybot/internal/types"
)

// Action is one of the closed set of workspace interactions accepted by Controller.Dispatch.
type Action interface {
	// Name identifies the action in logs, metrics and errors.
	Name() string
	isAction()
}

// AddJob stores a new job description.
type AddJob struct {
	Input types.JobDescriptionInput
}

// RemoveJob deletes a job description. Removing an unknown id succeeds without effect.
type RemoveJob struct {
	ID uuid.UUID
}

// SelectJob binds a job description to the interview session. uuid.Nil clears the binding.
type SelectJob struct {
	ID uuid.UUID
}

// SetTab switches the active tab.
type SetTab struct {
	Tab TabID
}

// ToggleSidebar flips the mobile sidebar.
type ToggleSidebar struct{}

// CloseSidebar dismisses the mobile sidebar overlay.
type CloseSidebar struct{}

// Logout ends the session through the auth provider.
type Logout struct{}

func (AddJob) Name() string        { return "add_job" }
func (RemoveJob) Name() string     { return "remove_job" }
func (SelectJob) Name() string     { return "select_job" }
func (SetTab) Name() string        { return "set_tab" }
func (ToggleSidebar) Name() string { return "toggle_sidebar" }
func (CloseSidebar) Name() string  { return "close_sidebar" }
func (Logout) Name() string        { return "logout" }

func (AddJob) isAction()        {}
func (RemoveJob) isAction()     {}
func (SelectJob) isAction()     {}
func (SetTab) isAction()        {}
func (ToggleSidebar) isAction() {}
func (CloseSidebar) isAction()  {}
func (Logout) isAction()        {}
