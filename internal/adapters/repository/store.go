// Package repository keeps the last good rows of every dataset along with
// its fetch status.
package repository

import (
	"context"
	"time"

	"github.com/okian/standings/internal/domain/types"
)

// Snapshot is the cached state of one dataset. Rows must not be modified.
type Snapshot struct {
	Dataset types.DatasetID
	Rows    []types.Row
	// FetchedAt is the time of the last successful replace; zero before
	// the first one.
	FetchedAt time.Time
	// Generation counts successful replaces.
	Generation uint64
	// Err is the failure of the latest fetch, nil when it succeeded.
	Err      error
	FailedAt time.Time
}

// Loaded reports whether the dataset was fetched successfully at least once.
func (s Snapshot) Loaded() bool { return s.Generation > 0 }

// Stale reports whether the latest fetch failed, so Rows are older data.
func (s Snapshot) Stale() bool { return s.Err != nil }

// Store holds dataset snapshots.
type Store interface {
	// Replace swaps the rows of a dataset wholesale and clears its error.
	Replace(ctx context.Context, dataset types.DatasetID, rows []types.Row) (Snapshot, error)
	// Fail records a failed fetch and keeps the previous rows.
	Fail(ctx context.Context, dataset types.DatasetID, err error) (Snapshot, error)
	// Get returns the snapshot of a dataset.
	// Returns ErrNotFound for a dataset the store was not created with.
	Get(ctx context.Context, dataset types.DatasetID) (Snapshot, error)
	// Datasets lists the tracked datasets in creation order.
	Datasets() []types.DatasetID
	// Reset drops every cached row and error.
	Reset(ctx context.Context)
}
