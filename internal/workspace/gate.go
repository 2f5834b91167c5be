package workspace

import (
	"context"
	"io"
	"time"

	"github.com/jonathan/pallybot/internal/types"
	"github.com/sirupsen/logrus"
)

// DefaultLogoutTimeout bounds how long the gate waits for the auth provider to end a session.
const DefaultLogoutTimeout = 10 * time.Second

// Phase is the authentication phase reported by the auth provider.
type Phase string

// Authentication phases.
const (
	PhaseUnauthenticated Phase = "unauthenticated"
	PhaseAuthenticating  Phase = "authenticating"
	PhaseAuthenticated   Phase = "authenticated"
)

// SessionState is the gate's view of the current session.
type SessionState struct {
	Phase Phase              `json:"phase"`
	User  *types.SessionUser `json:"user,omitempty"`
}

// Update is one state change delivered by the auth provider. Generation identifies the login
// attempt the update belongs to and grows monotonically across attempts.
type Update struct {
	Generation uint64
	State      SessionState
	Err        error
}

// Authenticator is the external auth provider. Updates must be delivered asynchronously:
// Logout must not invoke subscribers before it returns.
type Authenticator interface {
	Logout(ctx context.Context) error
	Subscribe(fn func(Update)) (unsubscribe func())
}

// Gate decides whether the workspace may be entered, based on updates from the auth provider.
// It is not safe for concurrent use; Controller serializes access.
type Gate struct {
	auth          Authenticator
	state         SessionState
	generation    uint64
	retired       uint64
	settled       chan struct{}
	teardown      []func()
	logoutTimeout time.Duration
	log           logrus.FieldLogger
}

// NewGate creates a gate in the unauthenticated state.
func NewGate(auth Authenticator) *Gate {
	settled := make(chan struct{})
	close(settled)
	return &Gate{
		auth:          auth,
		state:         SessionState{Phase: PhaseUnauthenticated},
		settled:       settled,
		logoutTimeout: DefaultLogoutTimeout,
		log:           discardLogger(),
	}
}

// OnTeardown registers fn to run whenever an authenticated session ends.
func (g *Gate) OnTeardown(fn func()) {
	g.teardown = append(g.teardown, fn)
}

// State returns the current session state.
func (g *Gate) State() SessionState {
	return g.state
}

// Generation returns the login attempt the current state belongs to.
func (g *Gate) Generation() uint64 {
	return g.generation
}

// CanEnterWorkspace reports whether protected views may render.
func (g *Gate) CanEnterWorkspace() bool {
	return g.state.Phase == PhaseAuthenticated
}

// Observe applies an update from the auth provider. Updates for a retired or superseded
// generation, and transitions the state machine does not allow, are discarded.
// It returns true when the update changed the gate.
func (g *Gate) Observe(u Update) bool {
	entry := g.log.WithFields(logrus.Fields{
		"generation": u.Generation,
		"phase":      u.State.Phase,
	})

	if u.Generation == 0 || u.Generation <= g.retired || u.Generation < g.generation {
		entry.WithField("retired", g.retired).Debug("discarding stale auth update")
		return false
	}

	from := g.state.Phase
	to := u.State.Phase

	if u.Generation > g.generation {
		// A new login attempt; the previous session must not leak into it.
		if from == PhaseAuthenticated {
			g.runTeardown()
			g.state = SessionState{Phase: PhaseUnauthenticated}
		}
		g.generation = u.Generation
	} else if !allowedTransition(from, to) {
		entry.WithField("from", from).Warn("discarding invalid auth transition")
		return false
	}

	switch to {
	case PhaseAuthenticating:
		g.state = SessionState{Phase: PhaseAuthenticating}
	case PhaseAuthenticated:
		g.state = SessionState{Phase: PhaseAuthenticated, User: cloneUser(u.State.User)}
	case PhaseUnauthenticated:
		if u.Err != nil {
			entry = entry.WithError(u.Err)
		}
		g.end(u.Generation)
		entry.Info("session ended by auth provider")
	default:
		entry.Warn("discarding auth update with unknown phase")
		return false
	}

	g.updateSettled(from)
	return true
}

// Logout asks the auth provider to end the session. On success the gate becomes
// unauthenticated and every teardown hook runs. On failure the session stays authenticated
// and an AuthCollaboratorError is returned. The caller's cancellation does not abort a
// logout once requested; the provider call is bounded by the gate's logout timeout instead.
func (g *Gate) Logout(ctx context.Context) error {
	if g.state.Phase != PhaseAuthenticated {
		return &NotAuthenticatedError{Action: "logout"}
	}

	logoutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.logoutTimeout)
	defer cancel()

	if err := g.auth.Logout(logoutCtx); err != nil {
		g.log.WithError(err).WithField("generation", g.generation).Warn("logout failed, keeping session")
		return &AuthCollaboratorError{Op: "logout", Cause: err}
	}

	g.end(g.generation)
	g.log.WithField("generation", g.generation).Info("logged out")
	return nil
}

// Cancel abandons a login attempt that is still authenticating. It returns false when the
// gate is not authenticating.
func (g *Gate) Cancel() bool {
	if g.state.Phase != PhaseAuthenticating {
		return false
	}
	g.end(g.generation)
	g.updateSettled(PhaseAuthenticating)
	g.log.WithField("generation", g.generation).Info("login attempt cancelled")
	return true
}

// Settled returns a channel that is closed while the gate is not authenticating.
func (g *Gate) Settled() <-chan struct{} {
	return g.settled
}

// end retires generation, tears down an authenticated session and resets to unauthenticated.
func (g *Gate) end(generation uint64) {
	wasAuthenticated := g.state.Phase == PhaseAuthenticated
	if generation > g.retired {
		g.retired = generation
	}
	g.state = SessionState{Phase: PhaseUnauthenticated}
	if wasAuthenticated {
		g.runTeardown()
	}
}

func (g *Gate) runTeardown() {
	for _, fn := range g.teardown {
		fn()
	}
}

func (g *Gate) updateSettled(from Phase) {
	to := g.state.Phase
	switch {
	case from != PhaseAuthenticating && to == PhaseAuthenticating:
		g.settled = make(chan struct{})
	case from == PhaseAuthenticating && to != PhaseAuthenticating:
		close(g.settled)
	}
}

// allowedTransition reports whether a same-generation update may move from one phase to another.
func allowedTransition(from, to Phase) bool {
	switch from {
	case PhaseAuthenticating:
		return to == PhaseAuthenticated || to == PhaseUnauthenticated
	case PhaseAuthenticated:
		// authenticated -> authenticated refreshes the user profile
		return to == PhaseAuthenticated || to == PhaseUnauthenticated
	default:
		return false
	}
}

func cloneUser(u *types.SessionUser) *types.SessionUser {
	if u == nil {
		return nil
	}
	out := *u
	if u.CreatedAt != nil {
		created := *u.CreatedAt
		out.CreatedAt = &created
	}
	return &out
}

func discardLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
