// Package workspace implements the authenticated workspace session: the job description
// catalog, the job bound to the interview session, tab navigation, and the gate that admits
// actions only while the auth provider reports an authenticated session.
//
// Every mutation goes through Controller.Dispatch, which applies actions one at a time in
// submission order.
package workspace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/pallybot/internal/types"
	"github.com/sirupsen/logrus"
)

// Result is the outcome of a successful dispatch.
type Result struct {
	// Created is set for AddJob.
	Created *types.JobDescription `json:"created,omitempty"`
	// Removed reports whether RemoveJob found the job.
	Removed bool `json:"removed,omitempty"`
	View    View `json:"view"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used by the controller and its gate.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Controller) {
		c.log = logger
		c.gate.log = logger
	}
}

// WithLogoutTimeout bounds how long Logout waits for the auth provider.
func WithLogoutTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.gate.logoutTimeout = d
	}
}

// WithCatalogOptions configures the controller's catalog.
func WithCatalogOptions(opts ...CatalogOption) Option {
	return func(c *Controller) {
		for _, opt := range opts {
			opt(c.catalog)
		}
	}
}

// Controller composes the catalog, selection, tabs and gate of one session.
type Controller struct {
	mu          sync.Mutex
	catalog     *Catalog
	selection   *Selection
	tabs        *Tabs
	gate        *Gate
	log         logrus.FieldLogger
	listeners   map[int]func(View)
	nextID      int
	changed     chan struct{}
	unsubscribe func()
}

// NewController creates a controller for a new session and subscribes it to auth.
func NewController(auth Authenticator, opts ...Option) *Controller {
	catalog := NewCatalog()
	c := &Controller{
		catalog:   catalog,
		selection: NewSelection(catalog),
		tabs:      NewTabs(),
		gate:      NewGate(auth),
		log:       discardLogger(),
		listeners: make(map[int]func(View)),
		changed:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.gate.OnTeardown(func() {
		c.catalog.Clear()
		c.selection.Clear()
		c.tabs.Reset()
	})
	c.unsubscribe = auth.Subscribe(c.observe)
	return c
}

// Close detaches the controller from the auth provider.
func (c *Controller) Close() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// observe is the auth provider subscription callback.
func (c *Controller) observe(u Update) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gate.Observe(u) {
		c.publish()
	}
}

// Dispatch applies one action. While the gate is not authenticated every action is
// rejected with NotAuthenticatedError and nothing changes. Failed actions leave the
// workspace exactly as it was.
func (c *Controller) Dispatch(ctx context.Context, action Action) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if action == nil {
		return Result{View: c.view()}, &ValidationError{Field: "action", Message: "is required"}
	}
	entry := c.log.WithField("action", action.Name())

	if !c.gate.CanEnterWorkspace() {
		entry.Debug("rejecting action outside authenticated session")
		return Result{View: c.view()}, &NotAuthenticatedError{Action: action.Name()}
	}

	var result Result
	var err error

	switch a := action.(type) {
	case AddJob:
		var job types.JobDescription
		job, err = c.catalog.Add(a.Input)
		if err == nil {
			result.Created = &job
			entry = entry.WithField("job_id", job.ID)
		}
	case RemoveJob:
		result.Removed = c.catalog.Remove(a.ID)
		entry = entry.WithField("job_id", a.ID)
	case SelectJob:
		err = c.selection.Select(a.ID)
		entry = entry.WithField("job_id", a.ID)
	case SetTab:
		err = c.tabs.SetActive(a.Tab)
	case ToggleSidebar:
		c.tabs.ToggleSidebar()
	case CloseSidebar:
		c.tabs.CloseSidebar()
	case Logout:
		err = c.gate.Logout(ctx)
	default:
		err = fmt.Errorf("unsupported action %T", action)
	}

	result.View = c.view()
	if err != nil {
		entry.WithError(err).Info("action rejected")
		return result, err
	}

	entry.Debug("action applied")
	c.publish()
	return result, nil
}

// CanEnterWorkspace reports whether protected views may render.
func (c *Controller) CanEnterWorkspace() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gate.CanEnterWorkspace()
}

// Session returns the gate's current session state.
func (c *Controller) Session() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gate.State()
}

// Generation returns the login attempt the current session state belongs to.
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gate.Generation()
}

// AwaitSettled blocks until the gate is no longer authenticating or ctx is done.
func (c *Controller) AwaitSettled(ctx context.Context) (SessionState, error) {
	c.mu.Lock()
	settled := c.gate.Settled()
	c.mu.Unlock()

	select {
	case <-settled:
		return c.Session(), nil
	case <-ctx.Done():
		return c.Session(), ctx.Err()
	}
}

// AwaitGeneration blocks until the gate has observed login attempt generation (or a later one)
// and is no longer authenticating, or until ctx is done. Auth updates arrive asynchronously, so
// a caller that has just started a login uses this rather than AwaitSettled.
func (c *Controller) AwaitGeneration(ctx context.Context, generation uint64) (SessionState, error) {
	for {
		c.mu.Lock()
		state := c.gate.State()
		reached := c.gate.Generation() >= generation
		changed := c.changed
		c.mu.Unlock()

		if reached && state.Phase != PhaseAuthenticating {
			return state, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return state, ctx.Err()
		}
	}
}

// CancelLogin abandons a login attempt still authenticating.
func (c *Controller) CancelLogin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gate.Cancel() {
		c.publish()
		return true
	}
	return false
}

// View returns a snapshot of the workspace.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view()
}

// InterviewContext is what the interview engine receives: the bound job, if any, and the
// active tab.
type InterviewContext struct {
	ActiveTab TabID                 `json:"active_tab"`
	Job       *types.JobDescription `json:"job,omitempty"`
}

// InterviewContext returns the context for the interview engine.
func (c *Controller) InterviewContext() (InterviewContext, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.gate.CanEnterWorkspace() {
		return InterviewContext{}, &NotAuthenticatedError{Action: "interview_context"}
	}

	ic := InterviewContext{ActiveTab: c.tabs.Active()}
	if job, ok := c.selection.Current(); ok {
		ic.Job = &job
	}
	return ic, nil
}

// Subscribe registers fn to receive a snapshot after every state change. fn runs while the
// controller is locked: it must not block or call back into the controller.
func (c *Controller) Subscribe(fn func(View)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Controller) publish() {
	close(c.changed)
	c.changed = make(chan struct{})

	if len(c.listeners) == 0 {
		return
	}
	v := c.view()
	for _, fn := range c.listeners {
		fn(v)
	}
}

func (c *Controller) view() View {
	session := c.gate.State()
	v := View{Session: session}
	if session.Phase != PhaseAuthenticated {
		return v
	}

	v.Workspace = &WorkspaceView{
		ActiveTab:   c.tabs.Active(),
		SidebarOpen: c.tabs.SidebarOpen(),
		Jobs:        c.catalog.List(),
	}
	if id := c.selection.ID(); id != uuid.Nil {
		v.Workspace.SelectedID = &id
	}
	return v
}
