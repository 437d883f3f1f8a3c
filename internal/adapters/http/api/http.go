// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	service "github.com/okian/engage/internal/app"
	"github.com/okian/engage/internal/domain/badge"
	"github.com/okian/engage/internal/domain/ledger"
	"github.com/okian/engage/internal/domain/model"
	"github.com/okian/engage/pkg/logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultMaxBodyBytes = 1 << 20
	healthTimeout       = 2 * time.Second
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	RecordSession(ctx context.Context, req service.RecordSessionRequest) (service.SessionResult, error)
	Achievements(ctx context.Context, memberID string) (service.AchievementsView, error)
	League(ctx context.Context, memberID string) (service.LeagueView, error)
	Rankings(ctx context.Context, req service.RankingQueryRequest) ([]model.RankingEntry, error)

	RecordPractice(ctx context.Context, req service.PracticeRequest) (service.PracticeResult, error)
	Streaks(ctx context.Context, memberID string) (service.StreakView, error)

	RecordActivity(ctx context.Context, req service.ActivityRequest) (ledger.ActivityCounts, error)
	ActivityCounts(ctx context.Context, memberID string) (ledger.ActivityCounts, error)

	Catalog() badge.Catalog
	Ping(ctx context.Context) error
}

// Server wires HTTP routes for the engagement API.
type Server struct {
	deps    Dependencies
	stats   *StatsHandler
	health  *HealthHandler
	limiter *RateLimiter
	mounts  []func(chi.Router)

	maxBodyBytes int64
	logger       logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRateLimit limits /api requests per client. A non-positive rate
// disables limiting. Forwarding headers are trusted only from the listed
// proxy addresses.
func WithRateLimit(requestsPerMinute float64, burst int, trustedProxies ...string) Option {
	return func(s *Server) {
		if requestsPerMinute > 0 {
			s.limiter = NewRateLimiter(RateLimit{
				RequestsPerMinute: requestsPerMinute,
				Burst:             burst,
				TrustedProxies:    trustedProxies,
			})
		}
	}
}

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithRoutes mounts extra routes, such as API docs, on the router.
func WithRoutes(fn func(chi.Router)) Option {
	return func(s *Server) {
		if fn != nil {
			s.mounts = append(s.mounts, fn)
		}
	}
}

// NewServer creates an API server.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:         deps,
		stats:        NewStatsHandler(statsProvider),
		health:       NewHealthHandler(deps),
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger = s.logger.Named("api")
	return s
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.health.HandleHealth, "healthz"))
	r.Handle("/metrics", s.health.MetricsHandler())
	r.Get("/stats", MetricsMiddleware(s.stats.HandleStats, "stats"))

	r.Route("/api", func(ar chi.Router) {
		if s.limiter != nil {
			ar.Use(s.limiter.Middleware)
		}
		ar.Post("/achievements", MetricsMiddleware(s.handleRecordSession, "achievements"))
		ar.Get("/achievements", MetricsMiddleware(s.handleAchievements, "achievements"))
		ar.Get("/league", MetricsMiddleware(s.handleLeague, "league"))
		ar.Get("/rankings", MetricsMiddleware(s.handleRankings, "rankings"))
		ar.Post("/streaks", MetricsMiddleware(s.handleRecordPractice, "streaks"))
		ar.Get("/streaks", MetricsMiddleware(s.handleStreaks, "streaks"))
		ar.Post("/activity-sessions", MetricsMiddleware(s.handleRecordActivity, "activity_sessions"))
		ar.Get("/activity-sessions", MetricsMiddleware(s.handleActivity, "activity_sessions"))
		ar.Get("/badges", MetricsMiddleware(s.handleBadges, "badges"))
	})

	for _, mount := range s.mounts {
		mount(r)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", NewKind("api.route", ErrUnknownRoute))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})
}

// Handler builds the full HTTP handler: request ids, panic recovery, the
// API routes and an OpenTelemetry span per request.
func (s *Server) Handler(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(chimw.Recoverer)
	s.Register(ctx, r)
	return otelhttp.NewHandler(r, "engage")
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail writes err with the status its kind maps to. Server errors are
// logged and their cause hidden from the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("method", r.Method),
			logger.Error(err),
		)
		writeError(w, status, code, nil)
		return
	}
	writeError(w, status, code, err)
}

// decode reads a JSON body into v. Malformed or oversize bodies are
// ErrBadRequest.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, op string, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}
