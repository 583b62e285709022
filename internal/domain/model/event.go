// Package model contains domain events passed between layers.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/okian/standings/internal/domain/types"
)

// LeaderChange is raised when the rank-one identity of a board changes
// between two refreshes.
type LeaderChange struct {
	EventID    string          `json:"event_id"`
	Dataset    types.DatasetID `json:"dataset"`
	Mode       types.Mode      `json:"mode"`
	Previous   string          `json:"previous"`
	Leader     string          `json:"leader"`
	Score      float64         `json:"score"`
	DetectedAt time.Time       `json:"detected_at"`
}

// NewLeaderChange builds a LeaderChange with a fresh event id.
func NewLeaderChange(board types.Board, previous, leader string, score float64, at time.Time) LeaderChange {
	return LeaderChange{
		EventID:    uuid.NewString(),
		Dataset:    board.Dataset,
		Mode:       board.Mode,
		Previous:   previous,
		Leader:     leader,
		Score:      score,
		DetectedAt: at,
	}
}

// Board returns the board the change happened on.
func (c LeaderChange) Board() types.Board {
	return types.Board{Dataset: c.Dataset, Mode: c.Mode}
}
