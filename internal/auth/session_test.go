package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/pallybot/internal/types"
	"github.com/jonathan/pallybot/internal/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

// recorder collects updates delivered to a subscriber.
type recorder struct {
	mu      sync.Mutex
	updates []workspace.Update
}

func (r *recorder) record(u workspace.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recorder) phases() []workspace.Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]workspace.Phase, len(r.updates))
	for i, u := range r.updates {
		out[i] = u.State.Phase
	}
	return out
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

func (r *recorder) last() workspace.Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates[len(r.updates)-1]
}

func testUser() *types.SessionUser {
	return &types.SessionUser{ID: uuid.New(), Email: "jo@example.com"}
}

func TestSession_DeliversInOrder(t *testing.T) {
	s := NewSession()
	rec := &recorder{}
	s.Subscribe(rec.record)

	gen := s.Begin()
	require.True(t, s.Complete(gen, testUser(), time.Time{}))
	require.NoError(t, s.Logout(context.Background()))

	require.Eventually(t, func() bool { return rec.len() == 3 }, waitFor, time.Millisecond)
	assert.Equal(t, []workspace.Phase{
		workspace.PhaseAuthenticating,
		workspace.PhaseAuthenticated,
		workspace.PhaseUnauthenticated,
	}, rec.phases())
	assert.Equal(t, uint64(1), rec.last().Generation)
}

func TestSession_GenerationsIncrease(t *testing.T) {
	s := NewSession()
	first := s.Begin()
	second := s.Begin()
	assert.Greater(t, second, first)

	assert.False(t, s.Complete(first, testUser(), time.Time{}), "superseded attempt")
	assert.True(t, s.Complete(second, testUser(), time.Time{}))
	assert.False(t, s.Fail(second, errors.New("late")), "attempt already settled")
}

func TestSession_Fail(t *testing.T) {
	s := NewSession()
	rec := &recorder{}
	s.Subscribe(rec.record)

	cause := errors.New("bad password")
	gen := s.Begin()
	require.True(t, s.Fail(gen, cause))

	require.Eventually(t, func() bool { return rec.len() == 2 }, waitFor, time.Millisecond)
	assert.Equal(t, workspace.PhaseUnauthenticated, rec.last().State.Phase)
	assert.ErrorIs(t, rec.last().Err, cause)
}

func TestSession_LogoutRevokesTokens(t *testing.T) {
	issuer := newTestIssuer()
	s := NewSession(WithTokens(issuer))

	token, expiresAt, err := issuer.Issue(uuid.New(), s.ID())
	require.NoError(t, err)
	gen := s.Begin()
	require.True(t, s.Complete(gen, testUser(), expiresAt))

	require.NoError(t, s.Logout(context.Background()))
	_, err = issuer.Validate(token)
	assert.Error(t, err)

	state, _ := s.State()
	assert.Equal(t, workspace.PhaseUnauthenticated, state.Phase)
}

func TestSession_LogoutHonorsCancelledContext(t *testing.T) {
	s := NewSession()
	gen := s.Begin()
	require.True(t, s.Complete(gen, testUser(), time.Time{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Logout(ctx), context.Canceled)

	state, _ := s.State()
	assert.Equal(t, workspace.PhaseAuthenticated, state.Phase)
}

func TestSession_ExpirySignsOut(t *testing.T) {
	s := NewSession()
	rec := &recorder{}
	s.Subscribe(rec.record)

	gen := s.Begin()
	require.True(t, s.Complete(gen, testUser(), time.Now().Add(20*time.Millisecond)))

	require.Eventually(t, func() bool {
		return rec.len() == 3 && rec.last().State.Phase == workspace.PhaseUnauthenticated
	}, waitFor, 5*time.Millisecond)
	assert.ErrorIs(t, rec.last().Err, ErrSessionExpired)
}

func TestSession_LateSubscriberReceivesCurrentState(t *testing.T) {
	s := NewSession()
	gen := s.Begin()
	require.True(t, s.Complete(gen, testUser(), time.Time{}))

	rec := &recorder{}
	s.Subscribe(rec.record)

	require.Eventually(t, func() bool { return rec.len() == 1 }, waitFor, time.Millisecond)
	assert.Equal(t, workspace.PhaseAuthenticated, rec.last().State.Phase)
}

func TestSession_UnsubscribeStopsDelivery(t *testing.T) {
	s := NewSession()
	rec := &recorder{}
	unsubscribe := s.Subscribe(rec.record)
	unsubscribe()

	s.Begin()
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, rec.len())
}

// The workspace gate driven by a real provider: the full login and logout cycle.
func TestSession_DrivesWorkspaceController(t *testing.T) {
	issuer := newTestIssuer()
	s := NewSession(WithTokens(issuer))
	c := workspace.NewController(s)
	defer c.Close()
	ctx := context.Background()

	gen := s.Begin()
	require.True(t, s.Complete(gen, testUser(), time.Time{}))

	waitCtx, cancel := context.WithTimeout(ctx, waitFor)
	defer cancel()
	require.Eventually(t, c.CanEnterWorkspace, waitFor, time.Millisecond)
	state, err := c.AwaitSettled(waitCtx)
	require.NoError(t, err)
	assert.Equal(t, workspace.PhaseAuthenticated, state.Phase)

	_, err = c.Dispatch(ctx, workspace.AddJob{Input: types.JobDescriptionInput{
		Title: "Backend Engineer", Company: "Acme", Description: "Build services.",
	}})
	require.NoError(t, err)

	_, err = c.Dispatch(ctx, workspace.Logout{})
	require.NoError(t, err)
	assert.False(t, c.CanEnterWorkspace())

	// The provider's own unauthenticated update arrives after logout and changes nothing.
	time.Sleep(20 * time.Millisecond)
	assert.False(t, c.CanEnterWorkspace())

	gen = s.Begin()
	require.True(t, s.Complete(gen, testUser(), time.Time{}))
	require.Eventually(t, c.CanEnterWorkspace, waitFor, time.Millisecond)
	assert.Empty(t, c.View().Workspace.Jobs)
}
