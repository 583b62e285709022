// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/standings/internal/domain/render"
)

// LeaderboardDependencies defines the interface for board reads.
type LeaderboardDependencies interface {
	Board() (render.Board, bool)
	BoardFor(ctx context.Context, mode, dataset string) (render.Board, error)
}

// LeaderboardHandler handles board and leaderboard requests.
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetBoard handles GET /board: the board currently on display.
func (h *LeaderboardHandler) HandleGetBoard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_board"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	b, ok := h.deps.Board()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "not_ready", NewKind(op, ErrNotReady))
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// HandleGetLeaderboard handles GET /leaderboard?dataset=&mode=&limit=.
// Without dataset and mode it returns the current board; either one alone
// is combined with the current view. limit trims the full list.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()

	limit := 0
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if n > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}

	var b render.Board
	mode, dataset := q.Get("mode"), q.Get("dataset")
	if mode == "" && dataset == "" {
		cur, ok := h.deps.Board()
		if !ok {
			writeError(w, http.StatusServiceUnavailable, "not_ready", NewKind(op, ErrNotReady))
			return
		}
		b = cur
	} else {
		if cur, ok := h.deps.Board(); ok {
			if mode == "" {
				mode = string(cur.View.Mode)
			}
			if dataset == "" {
				dataset = string(cur.View.Dataset)
			}
		}
		var err error
		if b, err = h.deps.BoardFor(r.Context(), mode, dataset); err != nil {
			writeServiceError(w, op, err)
			return
		}
	}

	if limit > 0 && len(b.Records) > limit {
		b.Records = b.Records[:limit]
	}
	writeJSON(w, http.StatusOK, b)
}
