package repository

import "time"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithClock sets the time source for FetchedAt and FailedAt.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetrics toggles the per-dataset Prometheus gauges.
func WithMetrics(enabled bool) Option {
	return func(s *MemoryStore) {
		s.metrics = enabled
	}
}
