package config

import (
	"fmt"
	"sort"
	"time"

	service "github.com/okian/standings/internal/app"
	"github.com/okian/standings/internal/adapters/source"
	"github.com/okian/standings/internal/domain/scoring"
	"github.com/okian/standings/internal/domain/types"
	"github.com/okian/standings/internal/domain/view"
)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// Datasets returns the configured dataset ids in id order.
func (c *Config) Datasets() []types.DatasetID {
	ids := make([]types.DatasetID, 0, len(c.Feeds))
	for id := range c.Feeds {
		ids = append(ids, types.DatasetID(id))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Schema returns the presentation schema of a feed.
func (f Feed) Schema() types.Schema {
	return types.Schema{
		NameColumns:        append([]string(nil), f.NameColumns...),
		PictureColumn:      f.PictureColumn,
		PicturePlaceholder: f.PicturePlaceholder,
		Columns:            append([]types.Column(nil), f.Columns...),
	}
}

// SourceFeeds converts the feed table for the source adapter.
func (c *Config) SourceFeeds() ([]source.Feed, error) {
	out := make([]source.Feed, 0, len(c.Feeds))
	for _, id := range c.Datasets() {
		f := c.Feeds[string(id)]
		format, err := source.ParseFormat(f.Format)
		if err != nil {
			return nil, fmt.Errorf("%w: feeds.%s: %w", ErrInvalidConfig, id, err)
		}
		out = append(out, source.Feed{
			Dataset:     id,
			URL:         f.URL,
			Format:      format,
			DataPath:    f.DataPath,
			Sheet:       f.Sheet,
			Schema:      f.Schema(),
			SkipUnnamed: f.SkipUnnamed,
		})
	}
	return out, nil
}

// ScoringOptions returns the score engine options.
func (c *Config) ScoringOptions() []scoring.Option {
	opts := []scoring.Option{scoring.WithWeights(c.Scoring.Weights)}
	for name, cols := range c.Scoring.Columns {
		mode, err := types.ParseMode(name)
		if err != nil {
			continue
		}
		opts = append(opts, scoring.WithColumns(mode, cols))
	}
	return opts
}

// InitialView returns the view shown on start.
func (c *Config) InitialView() view.State {
	st := view.State{Mode: types.ModeToday}
	if m, err := types.ParseMode(c.InitialMode); err == nil {
		st.Mode = m
	}
	if d, err := types.ParseDataset(c.InitialDataset); err == nil {
		st.Dataset = d
	} else if ids := c.Datasets(); len(ids) > 0 {
		st.Dataset = ids[0]
	}
	return st
}

// Settings returns the runtime settings, which Reconfigure can swap live.
func (c *Config) Settings() (service.Settings, error) {
	rotation, err := c.rotation()
	if err != nil {
		return service.Settings{}, fmt.Errorf("%w: rotation: %w", ErrInvalidConfig, err)
	}
	return service.Settings{
		RefreshInterval:    ms(c.RefreshIntervalMS),
		RotationInterval:   ms(c.RotationIntervalMS),
		AutoRotate:         c.AutoRotate,
		Rotation:           rotation,
		ScrollSpeed:        c.ScrollSpeed,
		RowHeight:          c.RowHeight,
		ViewportHeight:     c.ViewportHeight,
		TopN:               c.TopN,
		TitlePrefix:        c.TitlePrefix,
		UnknownName:        c.UnknownName,
		PicturePlaceholder: c.PicturePlaceholder,
	}, nil
}

// ServiceOptions wires a board service from the configuration: the feed
// source, datasets, score engine, settings and alert queue. Callers append
// their own sinks and listeners.
func (c *Config) ServiceOptions(srcOpts ...source.Option) ([]service.Option, error) {
	feeds, err := c.SourceFeeds()
	if err != nil {
		return nil, err
	}
	srcOpts = append([]source.Option{source.WithTimeout(ms(c.FetchTimeoutMS))}, srcOpts...)
	src, err := source.NewHTTPSource(feeds, srcOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	settings, err := c.Settings()
	if err != nil {
		return nil, err
	}

	opts := []service.Option{
		service.WithSource(src),
		service.WithScorer(scoring.NewEngine(c.ScoringOptions()...)),
		service.WithSettings(settings),
		service.WithInitialView(c.InitialView()),
		service.WithAlertQueueSize(c.AlertQueueSize),
		service.WithScrollFrame(ms(c.ScrollFrameMS)),
	}
	for _, f := range feeds {
		opts = append(opts, service.WithDataset(f.Dataset, f.Schema))
	}
	return opts, nil
}
