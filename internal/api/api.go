// Package api serves Friday's local admin HTTP API: health probes, the
// Prometheus scrape endpoint, and a small JSON surface for feeding typed
// utterances, invalidating the resource cache and inspecting usage and
// session state.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/MrWong99/friday/internal/assistant"
	"github.com/MrWong99/friday/internal/health"
	"github.com/MrWong99/friday/internal/observe"
	"github.com/MrWong99/friday/internal/session"
	"github.com/MrWong99/friday/internal/usage"
	"github.com/go-chi/chi/v5"
)

// Assistant handles typed utterances.
type Assistant interface {
	HandleText(ctx context.Context, text string) assistant.Outcome
}

// Cache is the resource cache.
type Cache interface {
	Invalidate()
}

// UsageSource provides the aggregated usage history.
type UsageSource interface {
	Snapshot(ctx context.Context) (usage.Snapshot, error)
}

// SessionSource reports session state.
type SessionSource interface {
	State() session.State
	Active() (session.Session, bool)
	Remaining() time.Duration
	Started() int
}

// Deps are the components behind the API. Assistant and Session are
// required; nil Cache or Usage disable their endpoints with 501.
type Deps struct {
	Assistant Assistant
	Session   SessionSource
	Cache     Cache
	Usage     UsageSource
	Health    *health.Handler

	// Metrics handler for /metrics. Defaults to [observe.MetricsHandler].
	MetricsHandler http.Handler
}

// Option configures a [Server].
type Option func(*Server)

// WithMetrics records request metrics on m instead of the default
// instruments.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithClock replaces time.Now for the suggestion hour.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// Server is the admin API.
type Server struct {
	deps    Deps
	metrics *observe.Metrics
	now     func() time.Time
	router  chi.Router
}

// New builds the router.
func New(deps Deps, opts ...Option) (*Server, error) {
	var errs []error
	if deps.Assistant == nil {
		errs = append(errs, errors.New("api: assistant is required"))
	}
	if deps.Session == nil {
		errs = append(errs, errors.New("api: session source is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if deps.Health == nil {
		deps.Health = health.New()
	}
	if deps.MetricsHandler == nil {
		deps.MetricsHandler = observe.MetricsHandler()
	}

	s := &Server{deps: deps, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(observe.Middleware(s.metrics))

	s.deps.Health.Register(r)
	r.Method(http.MethodGet, "/metrics", s.deps.MetricsHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/utterances", s.postUtterance)
		r.Post("/cache/invalidate", s.postInvalidate)
		r.Get("/usage", s.getUsage)
		r.Get("/session", s.getSession)
	})
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("api: listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	slog.Info("api: listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return fmt.Errorf("api: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api: shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api: serve: %w", err)
	}
	return nil
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

type utteranceRequest struct {
	Text string `json:"text" validate:"required,max=512"`
}

func (s *Server) postUtterance(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[utteranceRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Assistant.HandleText(r.Context(), req.Text))
}

func (s *Server) postInvalidate(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Cache == nil {
		writeError(w, http.StatusNotImplemented, errors.New("resource cache not configured"))
		return
	}
	s.deps.Cache.Invalidate()
	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

type appUsageResponse struct {
	Count int   `json:"count"`
	Hours []int `json:"hours"`
}

type usageResponse struct {
	CommandFrequency map[string]int              `json:"command_frequency"`
	HourlyUsage      [24]int                     `json:"hourly_usage"`
	Apps             map[string]appUsageResponse `json:"apps"`
	TopCommands      []string                    `json:"top_commands"`
	Suggestion       string                      `json:"suggestion,omitempty"`
}

func (s *Server) getUsage(w http.ResponseWriter, r *http.Request) {
	if s.deps.Usage == nil {
		writeError(w, http.StatusNotImplemented, errors.New("usage store not configured"))
		return
	}
	snap, err := s.deps.Usage.Snapshot(r.Context())
	if err != nil {
		slog.Warn("api: usage snapshot failed", "err", err)
		writeError(w, http.StatusServiceUnavailable, errors.New("usage history unavailable"))
		return
	}

	resp := usageResponse{
		CommandFrequency: snap.CommandFrequency,
		HourlyUsage:      snap.HourlyUsage,
		Apps:             make(map[string]appUsageResponse, len(snap.AppUsage)),
		TopCommands:      usage.TopCommands(snap, 5),
		Suggestion:       usage.Suggest(snap, s.now().Hour()),
	}
	for name, u := range snap.AppUsage {
		resp.Apps[name] = appUsageResponse{Count: u.Count, Hours: u.Hours}
	}
	writeJSON(w, http.StatusOK, resp)
}

type sessionResponse struct {
	State            string           `json:"state"`
	Session          *session.Session `json:"session,omitempty"`
	RemainingSeconds float64          `json:"remaining_seconds"`
	SessionsStarted  int              `json:"sessions_started"`
}

func (s *Server) getSession(w http.ResponseWriter, _ *http.Request) {
	resp := sessionResponse{
		State:           s.deps.Session.State().String(),
		SessionsStarted: s.deps.Session.Started(),
	}
	if sess, ok := s.deps.Session.Active(); ok {
		resp.Session = &sess
		resp.RemainingSeconds = s.deps.Session.Remaining().Seconds()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
