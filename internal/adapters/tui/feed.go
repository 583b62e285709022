// Package tui draws the board in a terminal with bubbletea.
package tui

import (
	"context"

	"github.com/okian/standings/internal/domain/model"
	"github.com/okian/standings/internal/domain/render"
)

const alertBuffer = 4

// Feed carries rendered boards and leader alerts from the service into the
// terminal program. It is registered as both a board listener and an alert
// sink; neither side ever blocks the service.
type Feed struct {
	boards chan render.Board
	alerts chan model.LeaderChange
}

// NewFeed creates an empty Feed.
func NewFeed() *Feed {
	return &Feed{
		boards: make(chan render.Board, 1),
		alerts: make(chan model.LeaderChange, alertBuffer),
	}
}

// OnBoard keeps only the latest board: an unread one is replaced.
func (f *Feed) OnBoard(b render.Board) {
	for {
		select {
		case f.boards <- b:
			return
		default:
		}
		select {
		case <-f.boards:
		default:
		}
	}
}

// Name identifies the sink in alert metrics.
func (f *Feed) Name() string { return "terminal" }

// Alert queues a leader change for the banner, dropping the oldest one
// when the program falls behind.
func (f *Feed) Alert(ctx context.Context, c model.LeaderChange) error { //nolint:gocritic // hugeParam: matches worker.Sink
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f.alerts <- c:
			return nil
		default:
		}
		select {
		case <-f.alerts:
		default:
		}
	}
}
