// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/standings/internal/app"
	"github.com/okian/standings/internal/domain/render"
	"github.com/okian/standings/internal/domain/types"
	"github.com/okian/standings/internal/domain/view"
)

const defaultMaxLimit = 500

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the board service.
type Dependencies interface {
	// Board returns the board of the current view; false before the first render.
	Board() (render.Board, bool)
	// BoardFor renders any view without selecting it.
	BoardFor(ctx context.Context, mode, dataset string) (render.Board, error)

	CurrentView() view.State
	Datasets() []types.DatasetID
	Select(ctx context.Context, mode, dataset string) (view.State, error)
	Refresh(ctx context.Context) error
}

// Server wires HTTP routes for the board API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	viewHandler        *ViewHandler
	dashboardHandler   *dashboardHandler
	ws                 http.Handler
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithWebSocket serves live board pushes at /ws.
func WithWebSocket(h http.Handler) Option {
	return func(s *Server) {
		s.ws = h
	}
}

// WithMaxLimit caps GET /leaderboard?limit.
func WithMaxLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.leaderboardHandler.maxLimit = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		leaderboardHandler: NewLeaderboardHandler(deps, defaultMaxLimit),
		viewHandler:        NewViewHandler(deps),
		dashboardHandler:   newDashboardHandler(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/{$}", s.dashboardHandler.HandleRoot)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/board", MetricsMiddleware(s.leaderboardHandler.HandleGetBoard, "board"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/view", MetricsMiddleware(s.viewHandler.HandleView, "view"))
	mux.HandleFunc("/refresh", MetricsMiddleware(s.viewHandler.HandleRefresh, "refresh"))
	if s.ws != nil {
		// not wrapped: the upgrade needs the raw writer and the request
		// lives as long as the connection
		mux.Handle("/ws", s.ws)
	}
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

// writeServiceError maps board service errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, view.ErrConfig):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "not_started", Wrap(op, err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "timeout", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
