package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/pallybot/internal/auth"
	"github.com/jonathan/pallybot/internal/types"
	"github.com/jonathan/pallybot/internal/workspace"
	"github.com/sirupsen/logrus"
)

// WorkspaceSession pairs the auth provider of one login with its workspace controller.
type WorkspaceSession struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Auth       *auth.Session
	Controller *workspace.Controller
}

// Sessions tracks the open workspace sessions by session ID. A session is dropped as soon as
// its controller reports it unauthenticated, whether by logout or token expiry.
type Sessions struct {
	tokens        *auth.TokenIssuer
	log           logrus.FieldLogger
	loginTimeout  time.Duration
	logoutTimeout time.Duration
	onCount       func(int)

	mu   sync.Mutex
	byID map[uuid.UUID]*WorkspaceSession
}

// NewSessions creates an empty registry.
func NewSessions(tokens *auth.TokenIssuer, logger logrus.FieldLogger, loginTimeout, logoutTimeout time.Duration) *Sessions {
	return &Sessions{
		tokens:        tokens,
		log:           logger,
		loginTimeout:  loginTimeout,
		logoutTimeout: logoutTimeout,
		onCount:       func(int) {},
		byID:          make(map[uuid.UUID]*WorkspaceSession),
	}
}

// Open starts a workspace session for an authenticated user and returns it with its token.
// It returns once the controller has observed the login.
func (s *Sessions) Open(ctx context.Context, user *types.User) (*WorkspaceSession, string, time.Time, error) {
	entry := s.log.WithField("user_id", user.ID)

	provider := auth.NewSession(auth.WithTokens(s.tokens), auth.WithSessionLogger(entry))
	entry = entry.WithField("session_id", provider.ID())
	controller := workspace.NewController(provider,
		workspace.WithLogger(entry),
		workspace.WithLogoutTimeout(s.logoutTimeout),
	)
	ws := &WorkspaceSession{ID: provider.ID(), UserID: user.ID, Auth: provider, Controller: controller}

	generation := provider.Begin()
	token, expiresAt, err := s.tokens.Issue(user.ID, provider.ID())
	if err != nil {
		provider.Fail(generation, err)
		controller.Close()
		return nil, "", time.Time{}, fmt.Errorf("failed to issue token: %w", err)
	}
	provider.Complete(generation, user.ToSessionUser(), expiresAt)

	waitCtx, cancel := context.WithTimeout(ctx, s.loginTimeout)
	defer cancel()
	state, err := controller.AwaitGeneration(waitCtx, generation)
	if err != nil || state.Phase != workspace.PhaseAuthenticated {
		controller.CancelLogin()
		controller.Close()
		s.tokens.Revoke(provider.ID(), expiresAt)
		if err == nil {
			err = errors.New("session did not authenticate")
		}
		return nil, "", time.Time{}, &workspace.AuthCollaboratorError{Op: "login", Cause: err}
	}

	s.mu.Lock()
	s.byID[ws.ID] = ws
	count := len(s.byID)
	s.mu.Unlock()
	s.onCount(count)

	controller.Subscribe(func(v workspace.View) {
		if v.Session.Phase == workspace.PhaseUnauthenticated {
			// listeners run under the controller lock; Close must not
			go s.drop(ws.ID)
		}
	})
	if !controller.CanEnterWorkspace() {
		s.drop(ws.ID)
		return nil, "", time.Time{}, &workspace.NotAuthenticatedError{Action: "login"}
	}

	entry.Info("workspace session opened")
	return ws, token, expiresAt, nil
}

// Get returns the open session with the given ID.
func (s *Sessions) Get(id uuid.UUID) (*WorkspaceSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.byID[id]
	return ws, ok
}

// Len returns the number of open sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// CloseAll signs out every open session.
func (s *Sessions) CloseAll() {
	s.mu.Lock()
	open := make([]*WorkspaceSession, 0, len(s.byID))
	for _, ws := range s.byID {
		open = append(open, ws)
	}
	s.mu.Unlock()

	for _, ws := range open {
		ws.Auth.SignOut(errors.New("server shutting down"))
		s.drop(ws.ID)
	}
}

func (s *Sessions) drop(id uuid.UUID) {
	s.mu.Lock()
	ws, ok := s.byID[id]
	if ok {
		delete(s.byID, id)
	}
	count := len(s.byID)
	s.mu.Unlock()

	if !ok {
		return
	}
	ws.Controller.Close()
	s.onCount(count)
	s.log.WithField("session_id", id).Info("workspace session closed")
}
