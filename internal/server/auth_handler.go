package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jonathan/pallybot/internal/types"
	"github.com/jonathan/pallybot/internal/workspace"
	"github.com/sirupsen/logrus"
)

// sessionResponse is returned by register and login: the account, its bearer token and the
// first snapshot of the new workspace session.
type sessionResponse struct {
	types.LoginResponse
	ExpiresAt time.Time      `json:"expires_at"`
	View      workspace.View `json:"view"`
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &ErrValidation{Field: "body", Message: "invalid JSON request body"}
	}
	return nil
}

// validationError converts a validator error into ErrValidation.
func validationError(err error) error {
	if field, tag, ok := types.FirstInvalidField(err); ok {
		return &ErrValidation{Field: field, Message: "failed " + tag + " check"}
	}
	return &ErrValidation{Field: "body", Message: err.Error()}
}

// handleRegister creates an account and signs it in.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req types.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errorResponse(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, validationError(err))
		return
	}

	user, err := s.users.Register(r.Context(), &req)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.log.WithField("user_id", user.ID).Info("account registered")

	s.openSession(w, r, user, http.StatusCreated)
}

// handleLogin verifies credentials and opens a workspace session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errorResponse(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, validationError(err))
		return
	}

	user, err := s.users.Authenticate(r.Context(), &req)
	if err != nil {
		s.metrics.observeLogin(err)
		s.log.WithField("email", req.Email).Info("login rejected")
		s.errorResponse(w, err)
		return
	}

	s.openSession(w, r, user, http.StatusOK)
}

func (s *Server) openSession(w http.ResponseWriter, r *http.Request, user *types.User, status int) {
	ws, token, expiresAt, err := s.sessions.Open(r.Context(), user)
	s.metrics.observeLogin(err)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	s.log.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"session_id": ws.ID,
	}).Info("signed in")

	s.jsonResponse(w, status, sessionResponse{
		LoginResponse: types.LoginResponse{User: user, Token: token},
		ExpiresAt:     expiresAt,
		View:          ws.Controller.View(),
	})
}
