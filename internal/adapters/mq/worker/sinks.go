package worker

import (
	"context"

	"github.com/okian/standings/pkg/logger"
)

// LogSink writes every leader change as an info line.
type LogSink struct {
	logger logger.Logger
}

// NewLogSink creates a LogSink; a nil logger uses the global one.
func NewLogSink(l logger.Logger) *LogSink {
	if l == nil {
		l = logger.Get().Named("alerts")
	}
	return &LogSink{logger: l}
}

// Name implements Sink.
func (s *LogSink) Name() string { return "log" }

// Alert implements Sink.
func (s *LogSink) Alert(ctx context.Context, c Event) error { //nolint:gocritic // hugeParam: matches Sink
	s.logger.Info(ctx, "new leader",
		logger.String("board", c.Board().String()),
		logger.String("leader", c.Leader),
		logger.String("previous", c.Previous),
		logger.Float64("score", c.Score),
		logger.String("eventID", c.EventID))
	return nil
}

// SinkFunc adapts a function to Sink.
type SinkFunc struct {
	ID string
	Fn func(ctx context.Context, c Event) error
}

// Name implements Sink.
func (s SinkFunc) Name() string { return s.ID }

// Alert implements Sink.
func (s SinkFunc) Alert(ctx context.Context, c Event) error { //nolint:gocritic // hugeParam: matches Sink
	return s.Fn(ctx, c)
}
