package repository

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/okian/standings/internal/domain/types"
	"github.com/okian/standings/pkg/metrics"
)

// MemoryStore is an in-memory Store. The set of datasets is fixed at
// construction; each dataset's snapshot is published atomically so readers
// never block writers.
type MemoryStore struct {
	order   []types.DatasetID
	slots   map[types.DatasetID]*atomic.Pointer[Snapshot]
	now     func() time.Time
	metrics bool
}

// NewMemoryStore creates a store tracking datasets.
func NewMemoryStore(datasets []types.DatasetID, opts ...Option) (*MemoryStore, error) {
	if len(datasets) == 0 {
		return nil, ErrNoDatasets
	}
	s := &MemoryStore{
		slots:   make(map[types.DatasetID]*atomic.Pointer[Snapshot], len(datasets)),
		now:     time.Now,
		metrics: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, id := range datasets {
		if _, dup := s.slots[id]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSet, id)
		}
		p := &atomic.Pointer[Snapshot]{}
		p.Store(&Snapshot{Dataset: id})
		s.slots[id] = p
		s.order = append(s.order, id)
	}
	return s, nil
}

func (s *MemoryStore) slot(dataset types.DatasetID) (*atomic.Pointer[Snapshot], error) {
	p, ok := s.slots[dataset]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, dataset)
	}
	return p, nil
}

// Replace implements Store.
func (s *MemoryStore) Replace(_ context.Context, dataset types.DatasetID, rows []types.Row) (Snapshot, error) {
	p, err := s.slot(dataset)
	if err != nil {
		return Snapshot{}, err
	}
	for {
		old := p.Load()
		next := &Snapshot{
			Dataset:    dataset,
			Rows:       append([]types.Row(nil), rows...),
			FetchedAt:  s.now(),
			Generation: old.Generation + 1,
		}
		if p.CompareAndSwap(old, next) {
			if s.metrics {
				metrics.UpdateDatasetRows(string(dataset), len(next.Rows))
				metrics.UpdateDatasetStale(string(dataset), false)
				metrics.UpdateDatasetLastSuccess(string(dataset), next.FetchedAt)
			}
			return *next, nil
		}
	}
}

// Fail implements Store.
func (s *MemoryStore) Fail(_ context.Context, dataset types.DatasetID, cause error) (Snapshot, error) {
	if cause == nil {
		return Snapshot{}, ErrNilError
	}
	p, err := s.slot(dataset)
	if err != nil {
		return Snapshot{}, err
	}
	for {
		old := p.Load()
		next := *old
		next.Err = cause
		next.FailedAt = s.now()
		if p.CompareAndSwap(old, &next) {
			if s.metrics {
				metrics.UpdateDatasetStale(string(dataset), true)
			}
			return next, nil
		}
	}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, dataset types.DatasetID) (Snapshot, error) {
	p, err := s.slot(dataset)
	if err != nil {
		return Snapshot{}, err
	}
	return *p.Load(), nil
}

// Datasets implements Store.
func (s *MemoryStore) Datasets() []types.DatasetID {
	return append([]types.DatasetID(nil), s.order...)
}

// Reset implements Store.
func (s *MemoryStore) Reset(context.Context) {
	for _, id := range s.order {
		s.slots[id].Store(&Snapshot{Dataset: id})
		if s.metrics {
			metrics.UpdateDatasetRows(string(id), 0)
			metrics.UpdateDatasetStale(string(id), false)
		}
	}
}
