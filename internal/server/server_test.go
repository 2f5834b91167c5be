package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonathan/pallybot/internal/auth"
	"github.com/jonathan/pallybot/internal/config"
	"github.com/jonathan/pallybot/internal/fetch"
	"github.com/jonathan/pallybot/internal/intake"
	"github.com/jonathan/pallybot/internal/observability"
	"github.com/jonathan/pallybot/internal/server/ratelimit"
	"github.com/jonathan/pallybot/internal/types"
	"github.com/jonathan/pallybot/internal/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeFetcher struct {
	text string
}

func (f fakeFetcher) Page(_ context.Context, url string) (*fetch.Page, error) {
	return &fetch.Page{URL: url, Platform: fetch.PlatformUnknown, Text: f.text}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Port:           0,
		MetricsEnabled: true,
		LoginTimeout:   2 * time.Second,
		LogoutTimeout:  2 * time.Second,
		JWT:            config.JWTConfig{Secret: "test-secret-key", ExpirationHours: 1},
		Password:       config.PasswordConfig{BcryptCost: bcrypt.MinCost},
	}
}

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	defaults := []Option{
		WithLogger(observability.Discard()),
		WithUserStore(auth.NewMemoryStore()),
		WithIntake(intake.New(
			intake.WithFetcher(fakeFetcher{text: "Senior Engineer\nWe build services in Go on Kubernetes."}),
			intake.WithLogger(observability.Discard()),
		)),
		WithRateLimiter(ratelimit.NewLimiter(&ratelimit.Config{Enabled: false})),
	}
	s, err := New(context.Background(), testConfig(), append(defaults, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() {
		s.sessions.CloseAll()
		s.Close()
	})
	return s
}

func do(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func register(t *testing.T, s *Server, email string) sessionResponse {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/auth/register", "", types.CreateUserRequest{
		Name:     "Ada",
		Email:    email,
		Password: "correct horse battery",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestServer_RegisterOpensWorkspace(t *testing.T) {
	s := newTestServer(t)
	resp := register(t, s, "ada@example.com")

	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.True(t, resp.ExpiresAt.After(time.Now()))
	assert.Equal(t, workspace.PhaseAuthenticated, resp.View.Session.Phase)
	require.NotNil(t, resp.View.Workspace)
	assert.Equal(t, workspace.TabInterview, resp.View.Workspace.ActiveTab)
	assert.Empty(t, resp.View.Workspace.Jobs)
	assert.Equal(t, 1, s.sessions.Len())
}

func TestServer_RegisterRejects(t *testing.T) {
	s := newTestServer(t)
	register(t, s, "ada@example.com")

	t.Run("duplicate email", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/auth/register", "", types.CreateUserRequest{
			Email: "ada@example.com", Password: "another password",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("short password", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/auth/register", "", types.CreateUserRequest{
			Email: "bob@example.com", Password: "short",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decode[errorBody](t, rec)
		assert.Contains(t, body.Error, "password")
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_Login(t *testing.T) {
	s := newTestServer(t)
	register(t, s, "ada@example.com")

	rec := do(t, s, http.MethodPost, "/auth/login", "", types.LoginRequest{
		Email: "ada@example.com", Password: "correct horse battery",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[sessionResponse](t, rec)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "Ada", resp.View.Session.User.Label())
	assert.Equal(t, 2, s.sessions.Len())

	rec = do(t, s, http.MethodPost, "/auth/login", "", types.LoginRequest{
		Email: "ada@example.com", Password: "wrong password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password.", decode[errorBody](t, rec).Notice)
}

func TestServer_WorkspaceRequiresToken(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/workspace", "/workspace/interview-context"} {
		rec := do(t, s, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	rec := do(t, s, http.MethodGet, "/workspace", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_Actions(t *testing.T) {
	s := newTestServer(t)
	token := register(t, s, "ada@example.com").Token

	rec := do(t, s, http.MethodPost, "/workspace/actions", token, actionRequest{
		Type: "add_job",
		Job: &types.JobDescriptionInput{
			Title:       "Backend Engineer",
			Company:     "Acme",
			Description: "Build APIs.",
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	added := decode[workspace.Result](t, rec)
	require.NotNil(t, added.Created)
	jobID := added.Created.ID

	rec = do(t, s, http.MethodPost, "/workspace/actions", token, actionRequest{Type: "select_job", ID: jobID.String()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/workspace/actions", token, actionRequest{Type: "set_tab", Tab: "jobs"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/workspace/interview-context", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ic := decode[workspace.InterviewContext](t, rec)
	assert.Equal(t, workspace.TabJobs, ic.ActiveTab)
	require.NotNil(t, ic.Job)
	assert.Equal(t, jobID, ic.Job.ID)

	rec = do(t, s, http.MethodPost, "/workspace/actions", token, actionRequest{Type: "remove_job", ID: jobID.String()})
	require.Equal(t, http.StatusOK, rec.Code)
	removed := decode[workspace.Result](t, rec)
	assert.True(t, removed.Removed)
	assert.Empty(t, removed.View.Workspace.Jobs)
	assert.Nil(t, removed.View.Workspace.SelectedID)
}

func TestServer_ActionErrors(t *testing.T) {
	s := newTestServer(t)
	token := register(t, s, "ada@example.com").Token

	tests := []struct {
		name   string
		req    actionRequest
		status int
		notice string
	}{
		{
			name:   "missing title",
			req:    actionRequest{Type: "add_job", Job: &types.JobDescriptionInput{Company: "Acme", Description: "d"}},
			status: http.StatusBadRequest,
			notice: "Please provide a title.",
		},
		{
			name:   "unknown job",
			req:    actionRequest{Type: "select_job", ID: "7f1c7c52-8a2e-4f3e-9d0b-1b7f6f3b2d11"},
			status: http.StatusNotFound,
			notice: "That job description no longer exists.",
		},
		{
			name:   "blank fields",
			req:    actionRequest{Type: "add_job", Job: &types.JobDescriptionInput{Title: "  ", Company: "\t", Description: " "}},
			status: http.StatusBadRequest,
			notice: "Please provide a title.",
		},
		{name: "bad tab", req: actionRequest{Type: "set_tab", Tab: "billing"}, status: http.StatusBadRequest},
		{name: "bad id", req: actionRequest{Type: "remove_job", ID: "nope"}, status: http.StatusBadRequest},
		{name: "unknown action", req: actionRequest{Type: "launch"}, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/workspace/actions", token, tt.req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.notice != "" {
				assert.Equal(t, tt.notice, decode[errorBody](t, rec).Notice)
			}
		})
	}
}

func TestServer_LogoutEndsSession(t *testing.T) {
	s := newTestServer(t)
	token := register(t, s, "ada@example.com").Token

	rec := do(t, s, http.MethodPost, "/workspace/actions", token, actionRequest{Type: "logout"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[workspace.Result](t, rec)
	assert.Equal(t, workspace.PhaseUnauthenticated, result.View.Session.Phase)
	assert.Nil(t, result.View.Workspace)

	rec = do(t, s, http.MethodGet, "/workspace", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Eventually(t, func() bool { return s.sessions.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestServer_SessionsAreIsolated(t *testing.T) {
	s := newTestServer(t)
	first := register(t, s, "ada@example.com").Token
	second := register(t, s, "bob@example.com").Token

	rec := do(t, s, http.MethodPost, "/workspace/actions", first, actionRequest{
		Type: "add_job",
		Job:  &types.JobDescriptionInput{Title: "SRE", Company: "Acme", Description: "On call."},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, s, http.MethodGet, "/workspace", second, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[workspace.View](t, rec)
	require.NotNil(t, view.Workspace)
	assert.Empty(t, view.Workspace.Jobs)
}

func TestServer_Intake(t *testing.T) {
	s := newTestServer(t)
	token := register(t, s, "ada@example.com").Token

	t.Run("text with hints", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/workspace/jobs/intake", token, intakeRequest{
			Source:  sourceText,
			Text:    "We are hiring an engineer to write Go services on Kubernetes.",
			Title:   "Platform Engineer",
			Company: "Acme",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		result := decode[workspace.Result](t, rec)
		require.NotNil(t, result.Created)
		assert.Equal(t, "Platform Engineer", result.Created.Title)
		assert.Contains(t, result.Created.Keywords, "Go")
		assert.Contains(t, result.Created.Keywords, "Kubernetes")
	})

	t.Run("json payload", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/workspace/jobs/intake", token, intakeRequest{
			Source:  sourceJSON,
			Payload: json.RawMessage(`{"title":"Data Engineer","company":"Acme","description":"Pipelines in Python.","keywords":["Airflow"]}`),
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		result := decode[workspace.Result](t, rec)
		assert.Equal(t, []string{"Airflow"}, result.Created.Keywords)
	})

	t.Run("url", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/workspace/jobs/intake", token, intakeRequest{
			Source:  sourceURL,
			URL:     "https://boards.greenhouse.io/acme/jobs/1",
			Title:   "Senior Engineer",
			Company: "Acme",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	t.Run("invalid payload", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/workspace/jobs/intake", token, intakeRequest{
			Source:  sourceJSON,
			Payload: json.RawMessage(`{"title":"Data Engineer"}`),
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing company", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/workspace/jobs/intake", token, intakeRequest{
			Source: sourceText,
			Text:   "Some posting text.",
			Title:  "Engineer",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad url", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/workspace/jobs/intake", token, intakeRequest{
			Source: sourceURL,
			URL:    "ftp://example.com/job",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown source", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/workspace/jobs/intake", token, intakeRequest{Source: "fax"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	rec := do(t, s, http.MethodGet, "/workspace", token, nil)
	view := decode[workspace.View](t, rec)
	assert.Len(t, view.Workspace.Jobs, 3)
}

func TestServer_RateLimit(t *testing.T) {
	limiter := ratelimit.NewLimiter(&ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		EndpointConfigs: []ratelimit.EndpointConfig{
			{Path: "/auth/login", Method: http.MethodPost, Limit: 1, Window: time.Hour, Burst: 1},
		},
	})
	s := newTestServer(t, WithRateLimiter(limiter))

	login := types.LoginRequest{Email: "nobody@example.com", Password: "whatever1"}
	rec := do(t, s, http.MethodPost, "/auth/login", "", login)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodPost, "/auth/login", "", login)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(t)
	token := register(t, s, "ada@example.com").Token
	do(t, s, http.MethodPost, "/workspace/actions", token, actionRequest{Type: "toggle_sidebar"})

	rec := do(t, s, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `pallybot_logins_total{outcome="ok"} 1`)
	assert.Contains(t, body, `pallybot_workspace_actions_total{action="toggle_sidebar",outcome="ok"} 1`)
	assert.Contains(t, body, "pallybot_workspace_sessions 1")
}

func TestServer_MetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.MetricsEnabled = false
	s, err := New(context.Background(), cfg,
		WithLogger(observability.Discard()),
		WithUserStore(auth.NewMemoryStore()),
		WithRateLimiter(ratelimit.NewLimiter(&ratelimit.Config{Enabled: false})),
	)
	require.NoError(t, err)
	defer s.Close()

	rec := do(t, s, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Events(t *testing.T) {
	s := newTestServer(t)
	token := register(t, s, "ada@example.com").Token

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/workspace/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	next := func() (string, string) {
		var event, data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "" && event != "":
				return event, data
			}
		}
	}

	event, data := next()
	assert.Equal(t, "workspace", event)
	assert.Contains(t, data, `"phase":"authenticated"`)

	rec := do(t, s, http.MethodPost, "/workspace/actions", token, actionRequest{Type: "set_tab", Tab: "settings"})
	require.Equal(t, http.StatusOK, rec.Code)
	event, data = next()
	assert.Equal(t, "workspace", event)
	assert.Contains(t, data, `"active_tab":"settings"`)

	rec = do(t, s, http.MethodPost, "/workspace/actions", token, actionRequest{Type: "logout"})
	require.Equal(t, http.StatusOK, rec.Code)
	event, _ = next()
	assert.Equal(t, "session_ended", event)
}

func TestStreamEvents_EndsWhenSessionAlreadyEnded(t *testing.T) {
	provider := auth.NewSession()
	controller := workspace.NewController(provider)
	defer controller.Close()

	rec := httptest.NewRecorder()
	sse, err := NewSSEWriter(rec)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	streamEvents(ctx, sse, controller)

	require.NoError(t, ctx.Err(), "stream should end without waiting for the client")
	assert.Contains(t, rec.Body.String(), "event: session_ended")
	assert.NotContains(t, rec.Body.String(), "event: workspace")
}
