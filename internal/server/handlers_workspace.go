package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/pallybot/internal/server/middleware"
	"github.com/jonathan/pallybot/internal/types"
	"github.com/jonathan/pallybot/internal/workspace"
)

// eventKeepAlive is the interval between keep-alive comments on the event stream.
const eventKeepAlive = 15 * time.Second

// actionRequest is the body of POST /workspace/actions.
type actionRequest struct {
	Type string                     `json:"type"`
	Job  *types.JobDescriptionInput `json:"job,omitempty"`
	ID   string                     `json:"id,omitempty"`
	Tab  string                     `json:"tab,omitempty"`
}

// toAction maps the request onto a workspace action.
func (req *actionRequest) toAction() (workspace.Action, error) {
	switch req.Type {
	case "add_job":
		if req.Job == nil {
			return nil, &ErrValidation{Field: "job", Message: "required for add_job"}
		}
		return workspace.AddJob{Input: *req.Job}, nil
	case "remove_job":
		id, err := parseJobID(req.ID, false)
		if err != nil {
			return nil, err
		}
		return workspace.RemoveJob{ID: id}, nil
	case "select_job":
		id, err := parseJobID(req.ID, true)
		if err != nil {
			return nil, err
		}
		return workspace.SelectJob{ID: id}, nil
	case "set_tab":
		tab, err := workspace.ParseTab(req.Tab)
		if err != nil {
			return nil, err
		}
		return workspace.SetTab{Tab: tab}, nil
	case "toggle_sidebar":
		return workspace.ToggleSidebar{}, nil
	case "close_sidebar":
		return workspace.CloseSidebar{}, nil
	case "logout":
		return workspace.Logout{}, nil
	default:
		return nil, &ErrValidation{Field: "type", Message: fmt.Sprintf("unknown action %q", req.Type)}
	}
}

// parseJobID parses a job description id. An empty id is uuid.Nil when allowEmpty is set, which
// clears the interview selection.
func parseJobID(raw string, allowEmpty bool) (uuid.UUID, error) {
	if raw == "" {
		if allowEmpty {
			return uuid.Nil, nil
		}
		return uuid.Nil, &ErrValidation{Field: "id", Message: "required"}
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &ErrValidation{Field: "id", Message: "must be a UUID"}
	}
	return id, nil
}

// session resolves the workspace session of an authenticated request. A token whose session has
// ended gets a 401.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*WorkspaceSession, bool) {
	sessionID, err := middleware.GetSessionID(r)
	if err != nil {
		s.errorResponse(w, &workspace.NotAuthenticatedError{})
		return nil, false
	}
	ws, ok := s.sessions.Get(sessionID)
	if !ok || !ws.Controller.CanEnterWorkspace() {
		s.errorResponse(w, &workspace.NotAuthenticatedError{})
		return nil, false
	}
	return ws, true
}

// handleGetWorkspace returns the current snapshot.
func (s *Server) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.session(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, ws.Controller.View())
}

// handleAction dispatches one workspace action.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.session(w, r)
	if !ok {
		return
	}

	var req actionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errorResponse(w, err)
		return
	}
	action, err := req.toAction()
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	result, err := ws.Controller.Dispatch(r.Context(), action)
	s.metrics.observeAction(action.Name(), err)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	status := http.StatusOK
	if result.Created != nil {
		status = http.StatusCreated
	}
	s.jsonResponse(w, status, result)
}

// handleInterviewContext returns the job bound to the interview session.
func (s *Server) handleInterviewContext(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.session(w, r)
	if !ok {
		return
	}
	ic, err := ws.Controller.InterviewContext()
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, ic)
}

// handleEvents streams a "workspace" event with every snapshot, starting with the current one.
// The stream ends with a "session_ended" event once the session is no longer authenticated.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.session(w, r)
	if !ok {
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	streamEvents(r.Context(), sse, ws.Controller)
}

// streamEvents writes controller snapshots to sse until ctx is done or the session ends.
func streamEvents(ctx context.Context, sse *SSEWriter, controller *workspace.Controller) {
	// Slow readers miss intermediate snapshots, never the latest one.
	updates := make(chan workspace.View, 1)
	unsubscribe := controller.Subscribe(func(v workspace.View) {
		select {
		case updates <- v:
		default:
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- v:
			default:
			}
		}
	})
	defer unsubscribe()

	// read after subscribing: a session that ended before then publishes nothing more
	current := controller.View()
	if current.Session.Phase == workspace.PhaseUnauthenticated {
		_ = sse.WriteEvent("session_ended", current.Session)
		return
	}
	if err := sse.WriteEvent("workspace", current); err != nil {
		return
	}

	ticker := time.NewTicker(eventKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sse.WriteComment("keep-alive"); err != nil {
				return
			}
		case v := <-updates:
			if v.Session.Phase == workspace.PhaseUnauthenticated {
				_ = sse.WriteEvent("session_ended", v.Session)
				return
			}
			if err := sse.WriteEvent("workspace", v); err != nil {
				return
			}
		}
	}
}
