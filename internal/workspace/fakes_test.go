package workspace

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/pallybot/internal/types"
	"github.com/stretchr/testify/require"
)

// fakeAuth is a controllable auth provider. Updates are delivered synchronously by emit,
// which tests call from their own goroutine.
type fakeAuth struct {
	mu          sync.Mutex
	subscribers map[int]func(Update)
	nextID      int
	logoutErr   error
	logoutCalls int
	logoutBlock bool
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{subscribers: make(map[int]func(Update))}
}

func (f *fakeAuth) Logout(ctx context.Context) error {
	f.mu.Lock()
	f.logoutCalls++
	err := f.logoutErr
	block := f.logoutBlock
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (f *fakeAuth) Subscribe(fn func(Update)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.subscribers[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subscribers, id)
	}
}

func (f *fakeAuth) emit(u Update) {
	f.mu.Lock()
	subs := make([]func(Update), 0, len(f.subscribers))
	for _, fn := range f.subscribers {
		subs = append(subs, fn)
	}
	f.mu.Unlock()
	for _, fn := range subs {
		fn(u)
	}
}

func (f *fakeAuth) subscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}

func (f *fakeAuth) setLogoutErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutErr = err
}

func authenticating(gen uint64) Update {
	return Update{Generation: gen, State: SessionState{Phase: PhaseAuthenticating}}
}

func authenticated(gen uint64, email string) Update {
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return Update{Generation: gen, State: SessionState{
		Phase: PhaseAuthenticated,
		User:  &types.SessionUser{Email: email, CreatedAt: &created},
	}}
}

func unauthenticated(gen uint64) Update {
	return Update{Generation: gen, State: SessionState{Phase: PhaseUnauthenticated}}
}

// newSignedInController returns a controller whose session is authenticated under generation 1.
func newSignedInController(t *testing.T) (*Controller, *fakeAuth) {
	t.Helper()
	auth := newFakeAuth()
	c := NewController(auth)
	t.Cleanup(c.Close)

	auth.emit(authenticating(1))
	auth.emit(authenticated(1, "jo@example.com"))
	require.True(t, c.CanEnterWorkspace())
	return c, auth
}

func jobInput(title, company string) types.JobDescriptionInput {
	return types.JobDescriptionInput{Title: title, Company: company, Description: "Own the " + title + " role."}
}
