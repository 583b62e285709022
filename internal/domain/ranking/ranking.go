// Package ranking orders scored rows and tracks who holds rank one.
package ranking

import (
	"sort"
	"sync"

	"github.com/okian/standings/internal/domain/scoring"
	"github.com/okian/standings/internal/domain/types"
)

// Rank scores a copy of rows in mode and returns it sorted by score,
// descending. The sort is stable: equal scores keep their source order. Ranks
// are positional (1..n), so ties get distinct ranks. The input is not modified.
func Rank(rows []types.Row, mode types.Mode, scorer scoring.Scorer) []types.Row {
	out := make([]types.Row, len(rows))
	for i, r := range rows {
		out[i] = types.Row{Fields: r.Fields, Score: scorer.Score(r, mode)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// Leader returns the identity and score of the first ranked row, or ok=false
// for an empty list.
func Leader(ranked []types.Row, schema types.Schema) (name string, score float64, ok bool) {
	if len(ranked) == 0 {
		return "", 0, false
	}
	return schema.Name(ranked[0]), ranked[0].Score, true
}

// Tracker keeps the last known leader of each board.
//
// The first leader observed for a board is recorded silently; a change is
// only reported against a previously recorded leader. An empty name leaves
// the record untouched.
type Tracker struct {
	mu      sync.Mutex
	leaders map[types.Board]string
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{leaders: make(map[types.Board]string)}
}

// Observe records leader for board and reports whether it replaced a
// different, previously recorded leader.
func (t *Tracker) Observe(board types.Board, leader string) (previous string, changed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	previous = t.leaders[board]
	if leader == "" {
		return previous, false
	}
	t.leaders[board] = leader
	if previous == "" || previous == leader {
		return previous, false
	}
	return previous, true
}

// Leader returns the recorded leader of board.
func (t *Tracker) Leader(board types.Board) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.leaders[board]
}

// Reset forgets every record, so the next observation of each board is a
// first load again.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leaders = make(map[types.Board]string)
}
