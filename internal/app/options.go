package service

import (
	"time"

	"github.com/okian/standings/internal/adapters/mq/worker"
	"github.com/okian/standings/internal/adapters/repository"
	"github.com/okian/standings/internal/adapters/source"
	"github.com/okian/standings/internal/domain/types"
	"github.com/okian/standings/internal/domain/view"
	"github.com/okian/standings/pkg/logger"
)

// Settings are the tunables that can change while the board runs.
type Settings struct {
	RefreshInterval  time.Duration
	RotationInterval time.Duration
	AutoRotate       bool
	// Rotation is the cyclic view sequence; empty means every mode over
	// every dataset.
	Rotation []view.State
	// ScrollSpeed is the offset advance per frame, in the same unit as
	// RowHeight and ViewportHeight.
	ScrollSpeed    float64
	RowHeight      float64
	ViewportHeight float64
	TopN           int
	TitlePrefix    string
	// UnknownName and PicturePlaceholder replace a missing name or picture;
	// empty keeps the renderer defaults.
	UnknownName        string
	PicturePlaceholder string
}

// DefaultSettings returns the settings used when none are given.
func DefaultSettings() Settings {
	return Settings{
		RefreshInterval:  30 * time.Second,
		RotationInterval: 60 * time.Second,
		AutoRotate:       true,
		ScrollSpeed:      1,
		RowHeight:        1,
		ViewportHeight:   20,
		TopN:             3,
	}
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSource sets where dataset rows come from.
func WithSource(src source.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithDataset registers a dataset and its display schema. Datasets keep the
// order they are registered in.
func WithDataset(id types.DatasetID, schema types.Schema) Option {
	return func(s *Service) {
		if _, ok := s.schemas[id]; !ok {
			s.datasets = append(s.datasets, id)
		}
		s.schemas[id] = schema
	}
}

// WithStore sets the dataset cache.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithScorer sets the score engine.
func WithScorer(scorer Scorer) Option {
	return func(s *Service) {
		if scorer != nil {
			s.scorer = scorer
		}
	}
}

// WithInitialView sets the view shown on start.
func WithInitialView(st view.State) Option {
	return func(s *Service) {
		s.initial = st
	}
}

// WithSettings replaces the runtime settings.
func WithSettings(settings Settings) Option {
	return func(s *Service) {
		s.settings = settings
	}
}

// WithScrollFrame makes the scroll animation advance itself every d. Without
// it, display surfaces drive frames through StepScroll.
func WithScrollFrame(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.scrollFrame = d
		}
	}
}

// WithAlertQueueSize sets how many leader changes may wait for delivery.
func WithAlertQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithSinks adds leader change sinks.
func WithSinks(sinks ...worker.Sink) Option {
	return func(s *Service) {
		s.sinks = append(s.sinks, sinks...)
	}
}

// WithListeners adds receivers of every rendered board.
func WithListeners(listeners ...BoardListener) Option {
	return func(s *Service) {
		s.listeners = append(s.listeners, listeners...)
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}
