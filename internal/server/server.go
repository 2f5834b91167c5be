// Package server exposes the workspace session controller over HTTP: account registration and
// login, per-session workspace actions, job description intake and a server-sent event stream
// of workspace snapshots.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/jonathan/pallybot/internal/auth"
	"github.com/jonathan/pallybot/internal/config"
	"github.com/jonathan/pallybot/internal/db"
	"github.com/jonathan/pallybot/internal/fetch"
	"github.com/jonathan/pallybot/internal/intake"
	"github.com/jonathan/pallybot/internal/llm"
	"github.com/jonathan/pallybot/internal/server/middleware"
	"github.com/jonathan/pallybot/internal/server/ratelimit"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 30 * time.Second

// Server is the HTTP API.
type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	handler    http.Handler
	log        logrus.FieldLogger

	db       *db.DB
	store    auth.UserStore
	users    *auth.Service
	tokens   *auth.TokenIssuer
	sessions *Sessions
	intake   *intake.Intake
	llm      llm.Client
	limiter  *ratelimit.Limiter
	metrics  *Metrics
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Server) { s.log = logger }
}

// WithUserStore replaces the account store selected from DATABASE_URL.
func WithUserStore(store auth.UserStore) Option {
	return func(s *Server) { s.store = store }
}

// WithIntake replaces the intake pipeline.
func WithIntake(in *intake.Intake) Option {
	return func(s *Server) { s.intake = in }
}

// WithRateLimiter replaces the limiter configured from RATE_LIMIT_* variables.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(s *Server) { s.limiter = l }
}

// New wires the server's dependencies. Accounts live in Postgres when DATABASE_URL is set and
// in memory otherwise. Keyword extraction uses Gemini when GEMINI_API_KEY is set.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		log:     logrus.StandardLogger(),
		metrics: NewMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		if cfg.UseDatabase() {
			database, err := db.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return nil, fmt.Errorf("failed to connect to database: %w", err)
			}
			if err := database.EnsureSchema(ctx); err != nil {
				database.Close()
				return nil, fmt.Errorf("failed to prepare database: %w", err)
			}
			s.db = database
			s.store = database
		} else {
			s.log.Warn("DATABASE_URL not set, accounts are kept in memory")
			s.store = auth.NewMemoryStore()
		}
	}

	s.users = auth.NewService(s.store, &cfg.Password)
	s.tokens = auth.NewTokenIssuer(&cfg.JWT)
	s.sessions = NewSessions(s.tokens, s.log, cfg.LoginTimeout, cfg.LogoutTimeout)
	s.sessions.onCount = func(n int) { s.metrics.activeSessions.Set(float64(n)) }

	if s.intake == nil {
		in, err := s.newIntake(ctx)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.intake = in
	}

	if s.limiter == nil {
		rlConfig, err := ratelimit.LoadConfig()
		if err != nil {
			s.Close()
			return nil, err
		}
		s.limiter = ratelimit.NewLimiter(rlConfig)
	}

	s.handler = s.routes()
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// no WriteTimeout: /workspace/events streams for the life of the session
		IdleTimeout: 60 * time.Second,
	}
	return s, nil
}

func (s *Server) newIntake(ctx context.Context) (*intake.Intake, error) {
	fetcher := fetch.New(fetch.Options{
		UseBrowser: s.cfg.IntakeUseBrowser,
		CacheTTL:   15 * time.Minute,
	}, fetch.WithLogger(s.log.WithField("component", "fetch")))

	opts := []intake.Option{
		intake.WithFetcher(fetcher),
		intake.WithLogger(s.log.WithField("component", "intake")),
	}
	if s.cfg.GeminiAPIKey != "" {
		tier, err := llm.ParseTier(s.cfg.IntakeModelTier)
		if err != nil {
			return nil, err
		}
		extractor, client, err := intake.NewGeminiExtractor(ctx, s.cfg.GeminiAPIKey, tier, s.cfg.GeminiModel,
			s.log.WithField("component", "extractor"))
		if err != nil {
			return nil, err
		}
		s.llm = client
		opts = append(opts, intake.WithExtractor(extractor))
	}
	return intake.New(opts...), nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.cfg.MetricsEnabled {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)

	protected := middleware.AuthMiddleware(tokenValidator{s.tokens}, s.unauthorized)
	mux.Handle("GET /workspace", protected(http.HandlerFunc(s.handleGetWorkspace)))
	mux.Handle("POST /workspace/actions", protected(http.HandlerFunc(s.handleAction)))
	mux.Handle("POST /workspace/jobs/intake", protected(http.HandlerFunc(s.handleIntake)))
	mux.Handle("GET /workspace/interview-context", protected(http.HandlerFunc(s.handleInterviewContext)))
	mux.Handle("GET /workspace/events", protected(http.HandlerFunc(s.handleEvents)))

	return s.withRateLimit(s.withLogging(s.withCORS(mux)))
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.WithField("addr", listener.Addr().String()).Info("server starting")
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		s.sessions.CloseAll()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	err := g.Wait()
	s.Close()
	s.log.Info("server stopped")
	return err
}

// Close releases the server's resources. It is safe to call more than once.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if s.llm != nil {
		_ = s.llm.Close()
		s.llm = nil
	}
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"status": "ok", "sessions": s.sessions.Len()}
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			s.log.WithError(err).Warn("health check: database unreachable")
			status["status"] = "degraded"
			s.jsonResponse(w, http.StatusServiceUnavailable, status)
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, status)
}

// tokenValidator adapts auth.TokenIssuer to the middleware interface.
type tokenValidator struct {
	issuer *auth.TokenIssuer
}

func (v tokenValidator) ValidateToken(token string) (middleware.SessionClaims, error) {
	claims, err := v.issuer.Validate(token)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request, reason string) {
	s.log.WithFields(logrus.Fields{"path": r.URL.Path, "reason": reason}).Debug("request not authenticated")
	s.errorResponse(w, &auth.ErrInvalidToken{Reason: reason})
}

// jsonResponse writes a JSON response.
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.WithError(err).Warn("failed to encode JSON response")
	}
}

// errorResponse writes err with the status HTTPStatus maps it to.
func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	body := errorBody{Error: err.Error(), Notice: notice(err)}
	if status == http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed")
		body.Error = "internal server error"
	}
	s.jsonResponse(w, status, body)
}

// withCORS adds CORS headers.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit rejects clients over their budget with 429.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.limiter.Allow(extractClientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Flush keeps event streams working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withLogging logs every request and records request metrics.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		s.metrics.observeRequest(r.Pattern, r.Method, status, elapsed)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   status,
			"duration": elapsed.String(),
			"remote":   r.RemoteAddr,
		}).Info("request handled")
	})
}

// extractClientID identifies the client by IP address.
func extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}
	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds() + 0.5)
		if seconds < 1 {
			seconds = 1
		}
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	s.log.WithFields(logrus.Fields{
		"client": extractClientID(r),
		"path":   r.URL.Path,
		"limit":  info.Limit,
	}).Warn("rate limit exceeded")
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
