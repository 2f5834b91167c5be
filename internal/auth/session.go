package auth

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/pallybot/internal/types"
	"github.com/jonathan/pallybot/internal/workspace"
	"github.com/sirupsen/logrus"
)

// Session is the authentication provider for one workspace session. Every login attempt gets a
// new generation. State changes are delivered to each subscriber on its own goroutine, in the
// order they happened, never from inside the call that caused them.
type Session struct {
	id     uuid.UUID
	tokens *TokenIssuer
	log    logrus.FieldLogger

	mu          sync.Mutex
	generation  uint64
	state       workspace.SessionState
	expiresAt   time.Time
	expiry      *time.Timer
	subscribers map[int]*subscriber
	nextID      int
}

var _ workspace.Authenticator = (*Session)(nil)

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithTokens makes Logout revoke the session's tokens.
func WithTokens(tokens *TokenIssuer) SessionOption {
	return func(s *Session) {
		s.tokens = tokens
	}
}

// WithSessionLogger sets the session logger.
func WithSessionLogger(logger logrus.FieldLogger) SessionOption {
	return func(s *Session) {
		s.log = logger
	}
}

// NewSession creates an unauthenticated session.
func NewSession(opts ...SessionOption) *Session {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	s := &Session{
		id:          uuid.New(),
		log:         discard,
		state:       workspace.SessionState{Phase: workspace.PhaseUnauthenticated},
		subscribers: make(map[int]*subscriber),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("session_id", s.id)
	return s
}

// ID identifies the session. Tokens issued for it carry the ID as their jti claim.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Begin starts a login attempt and returns its generation.
func (s *Session) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopExpiry()
	s.generation++
	s.state = workspace.SessionState{Phase: workspace.PhaseAuthenticating}
	s.publish(workspace.Update{Generation: s.generation, State: s.state})
	s.log.WithField("generation", s.generation).Debug("login attempt started")
	return s.generation
}

// Complete finishes the login attempt generation with an authenticated user. When expiresAt
// is set the session signs itself out at that time. Completing a superseded attempt is a no-op
// and returns false.
func (s *Session) Complete(generation uint64, user *types.SessionUser, expiresAt time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation || s.state.Phase != workspace.PhaseAuthenticating {
		return false
	}

	s.state = workspace.SessionState{Phase: workspace.PhaseAuthenticated, User: user}
	s.expiresAt = expiresAt
	if !expiresAt.IsZero() {
		s.expiry = time.AfterFunc(time.Until(expiresAt), func() {
			s.signOut(generation, ErrSessionExpired)
		})
	}
	s.publish(workspace.Update{Generation: generation, State: s.state})
	s.log.WithField("generation", generation).Info("session authenticated")
	return true
}

// Fail ends the login attempt generation without authenticating.
func (s *Session) Fail(generation uint64, cause error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation || s.state.Phase != workspace.PhaseAuthenticating {
		return false
	}
	s.state = workspace.SessionState{Phase: workspace.PhaseUnauthenticated}
	s.publish(workspace.Update{Generation: generation, State: s.state, Err: cause})
	s.log.WithField("generation", generation).WithError(cause).Info("login attempt failed")
	return true
}

// Refresh replaces the profile of the authenticated user.
func (s *Session) Refresh(user *types.SessionUser) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Phase != workspace.PhaseAuthenticated {
		return false
	}
	s.state = workspace.SessionState{Phase: workspace.PhaseAuthenticated, User: user}
	s.publish(workspace.Update{Generation: s.generation, State: s.state})
	return true
}

// SignOut ends the session from the provider side, for example when an administrator disables
// the account.
func (s *Session) SignOut(cause error) bool {
	s.mu.Lock()
	generation := s.generation
	s.mu.Unlock()
	return s.signOut(generation, cause)
}

func (s *Session) signOut(generation uint64, cause error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation || s.state.Phase != workspace.PhaseAuthenticated {
		return false
	}
	s.end()
	s.publish(workspace.Update{Generation: generation, State: s.state, Err: cause})
	s.log.WithField("generation", generation).WithError(cause).Info("session signed out")
	return true
}

// Logout ends an authenticated session and revokes its tokens.
func (s *Session) Logout(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Phase == workspace.PhaseUnauthenticated {
		return nil
	}
	if s.tokens != nil {
		s.tokens.Revoke(s.id, s.expiresAt)
	}
	s.end()
	s.publish(workspace.Update{Generation: s.generation, State: s.state})
	s.log.WithField("generation", s.generation).Info("session logged out")
	return nil
}

// State returns the provider's current state and generation.
func (s *Session) State() (workspace.SessionState, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.generation
}

// Subscribe registers fn for state changes. A subscriber joining after the first login attempt
// first receives the current state.
func (s *Session) Subscribe(fn func(workspace.Update)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	sub := &subscriber{fn: fn}
	s.subscribers[id] = sub
	if s.generation > 0 {
		sub.enqueue(workspace.Update{Generation: s.generation, State: s.state})
	}

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
		sub.close()
	}
}

func (s *Session) end() {
	s.stopExpiry()
	s.expiresAt = time.Time{}
	s.state = workspace.SessionState{Phase: workspace.PhaseUnauthenticated}
}

func (s *Session) stopExpiry() {
	if s.expiry != nil {
		s.expiry.Stop()
		s.expiry = nil
	}
}

func (s *Session) publish(u workspace.Update) {
	for _, sub := range s.subscribers {
		sub.enqueue(u)
	}
}

// subscriber delivers updates in order on a goroutine that lives while the queue is non-empty.
type subscriber struct {
	fn func(workspace.Update)

	mu       sync.Mutex
	queue    []workspace.Update
	draining bool
	closed   bool
}

func (s *subscriber) enqueue(u workspace.Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.queue = append(s.queue, u)
	if !s.draining {
		s.draining = true
		go s.drain()
	}
}

func (s *subscriber) drain() {
	for {
		s.mu.Lock()
		if s.closed || len(s.queue) == 0 {
			s.queue = nil
			s.draining = false
			s.mu.Unlock()
			return
		}
		u := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.fn(u)
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.queue = nil
}
