// Package config defines the board configuration and how it is loaded.
//
// Conventions:
// - New() returns a Config holding every default.
// - Load layers a YAML file and STANDINGS_ environment variables on top.
// - Errors wrap ErrLoadConfig or ErrInvalidConfig.
package config

import (
	"strings"

	"github.com/okian/standings/internal/domain/scoring"
	"github.com/okian/standings/internal/domain/types"
)

// Feed configures one dataset: where its rows come from and how they are
// presented.
type Feed struct {
	// URL is an http(s) address, a file:// URL or a local path.
	URL string `koanf:"url"`

	// Format is csv, json, xlsx or yaml; empty detects it from the response.
	Format string `koanf:"format"`

	// DataPath is a gjson path (json) or top-level key (yaml) to the rows.
	DataPath string `koanf:"data_path"`

	// Sheet selects the xlsx sheet; empty reads the first.
	Sheet string `koanf:"sheet"`

	// NameColumns are tried in order for each row's identity.
	NameColumns []string `koanf:"name_columns"`

	// PictureColumn holds each row's image URL.
	PictureColumn string `koanf:"picture_column"`

	// PicturePlaceholder is shown for rows of this feed without a picture.
	PicturePlaceholder string `koanf:"picture_placeholder"`

	// Columns are extra display columns, e.g. MGA and CATEGORY.
	Columns []types.Column `koanf:"columns"`

	// SkipUnnamed drops rows without an identity instead of showing "Unknown".
	SkipUnnamed bool `koanf:"skip_unnamed"`
}

// Scoring configures the score formula.
type Scoring struct {
	Weights scoring.Weights `koanf:"weights"`

	// Columns maps a mode name (today, total) to the metric headers it reads.
	Columns map[string]scoring.Columns `koanf:"columns"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	RefreshIntervalMS  int  `koanf:"refresh_interval_ms"`
	RotationIntervalMS int  `koanf:"rotation_interval_ms"`
	AutoRotate         bool `koanf:"auto_rotate"`

	// Rotation lists "mode:dataset" views; empty rotates every mode over
	// every dataset.
	Rotation []string `koanf:"rotation"`

	// InitialDataset defaults to the first dataset in id order.
	InitialMode    string `koanf:"initial_mode"`
	InitialDataset string `koanf:"initial_dataset"`

	// ScrollSpeed is rows advanced per frame; ScrollFrameMS is the frame period.
	ScrollSpeed    float64 `koanf:"scroll_speed"`
	ScrollFrameMS  int     `koanf:"scroll_frame_ms"`
	RowHeight      float64 `koanf:"row_height"`
	ViewportHeight float64 `koanf:"viewport_height"`

	// TopN is the size of the podium shown above the full list.
	TopN        int    `koanf:"top_n"`
	TitlePrefix string `koanf:"title_prefix"`

	// UnknownName is shown for rows without a name.
	UnknownName string `koanf:"unknown_name"`
	// PicturePlaceholder is shown for rows without a picture when their
	// feed sets none.
	PicturePlaceholder string `koanf:"picture_placeholder"`

	FetchTimeoutMS int `koanf:"fetch_timeout_ms"`

	// AlertQueueSize bounds the leader change queue.
	AlertQueueSize int `koanf:"alert_queue_size"`

	// Feeds maps a dataset id to its feed.
	Feeds map[string]Feed `koanf:"feeds"`

	Scoring Scoring `koanf:"scoring"`
}

// New creates a Config with defaults for the advisor and technician boards.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		RefreshIntervalMS:  30_000,
		RotationIntervalMS: 60_000,
		AutoRotate:         true,
		InitialMode:        string(types.ModeToday),
		ScrollSpeed:        1,
		ScrollFrameMS:      50,
		RowHeight:          1,
		ViewportHeight:     20,
		TopN:               3,
		UnknownName:        "Unknown",
		PicturePlaceholder: "https://via.placeholder.com/50?text=U",
		FetchTimeoutMS:     10_000,
		AlertQueueSize:     64,
		Feeds:              defaultFeeds(),
		Scoring: Scoring{
			Weights: scoring.DefaultWeights(),
			Columns: defaultScoringColumns(),
		},
	}
}

func defaultFeeds() map[string]Feed {
	return map[string]Feed{
		string(types.DatasetAdvisor): {
			URL:                "http://localhost:9090/feeds/advisor.csv",
			NameColumns:        []string{"Advisor Name", "Name"},
			PictureColumn:      "PIC",
			PicturePlaceholder: "https://via.placeholder.com/50?text=A",
			Columns: []types.Column{
				{Label: "MGA", Field: "MGA"},
				{Label: "Category", Field: "CATEGORY"},
			},
		},
		string(types.DatasetTechnician): {
			URL:                "http://localhost:9090/feeds/technician.csv",
			NameColumns:        []string{"Technician Name", "Name"},
			PictureColumn:      "PIC",
			PicturePlaceholder: "https://via.placeholder.com/50?text=T",
		},
	}
}

func defaultScoringColumns() map[string]scoring.Columns {
	out := make(map[string]scoring.Columns)
	for mode, cols := range scoring.DefaultColumns() {
		out[string(mode)] = cols
	}
	return out
}

// normalizeFeeds lowercases feed ids and restores presentation defaults a
// partial override left empty, so setting only feeds.advisor.url keeps the
// advisor name columns.
func (c *Config) normalizeFeeds() {
	defaults := defaultFeeds()
	feeds := make(map[string]Feed, len(c.Feeds))
	for id, f := range c.Feeds {
		id = strings.ToLower(strings.TrimSpace(id))
		d, ok := defaults[id]
		if !ok {
			feeds[id] = f
			continue
		}
		if f.URL == "" {
			f.URL = d.URL
		}
		if len(f.NameColumns) == 0 {
			f.NameColumns = d.NameColumns
		}
		if f.PictureColumn == "" {
			f.PictureColumn = d.PictureColumn
		}
		if f.PicturePlaceholder == "" {
			f.PicturePlaceholder = d.PicturePlaceholder
		}
		if len(f.Columns) == 0 {
			f.Columns = d.Columns
		}
		feeds[id] = f
	}
	c.Feeds = feeds
}
