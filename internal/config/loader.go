package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/standings/internal/adapters/source"
	"github.com/okian/standings/internal/domain/types"
	"github.com/okian/standings/internal/domain/view"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "STANDINGS_"
	// EnvConfigFile names the YAML file to load.
	EnvConfigFile = EnvPrefix + "CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if STANDINGS_CONFIG is set
//  3. env (prefix STANDINGS_, "__" separates nested keys)
func Load(ctx context.Context) (*Config, error) {
	return LoadFile(ctx, os.Getenv(EnvConfigFile))
}

// LoadFile is Load with an explicit YAML path; an empty path skips the file.
func LoadFile(_ context.Context, path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}
	// feeds listed in the file replace the default set; env only adjusts
	replaceFeeds := k.Exists("feeds")

	// STANDINGS_REFRESH_INTERVAL_MS -> refresh_interval_ms
	// STANDINGS_FEEDS__ADVISOR__URL -> feeds.advisor.url
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		if s == "CONFIG" {
			return ""
		}
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *New()
	if replaceFeeds {
		cfg.Feeds = nil
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	cfg.normalizeFeeds()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values Load cannot type-check.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return invalid("unknown log_level %q", c.LogLevel)
	}
	if c.Addr == "" {
		return invalid("addr must not be empty")
	}
	if c.RefreshIntervalMS <= 0 {
		return invalid("refresh_interval_ms must be positive")
	}
	if c.AutoRotate && c.RotationIntervalMS <= 0 {
		return invalid("rotation_interval_ms must be positive when auto_rotate is set")
	}
	if c.ScrollSpeed < 0 || c.ScrollFrameMS < 0 {
		return invalid("scroll_speed and scroll_frame_ms must not be negative")
	}
	if c.RowHeight <= 0 {
		return invalid("row_height must be positive")
	}
	if c.ViewportHeight < 0 {
		return invalid("viewport_height must not be negative")
	}
	if c.TopN < 0 {
		return invalid("top_n must not be negative")
	}
	if len(c.Feeds) == 0 {
		return invalid("no feeds configured")
	}
	for id, f := range c.Feeds {
		if strings.TrimSpace(id) == "" {
			return invalid("feed with empty id")
		}
		if f.URL == "" {
			return invalid("feeds.%s.url must not be empty", id)
		}
		if _, err := source.ParseFormat(f.Format); err != nil {
			return invalid("feeds.%s.format: %v", id, err)
		}
	}
	for name := range c.Scoring.Columns {
		if _, err := types.ParseMode(name); err != nil {
			return invalid("scoring.columns: %v", err)
		}
	}

	if _, err := types.ParseMode(c.InitialMode); err != nil && c.InitialMode != "" {
		return invalid("initial_mode: %v", err)
	}
	if c.InitialDataset != "" {
		if _, ok := c.Feeds[strings.ToLower(c.InitialDataset)]; !ok {
			return invalid("initial_dataset %q has no feed", c.InitialDataset)
		}
	}
	if _, err := c.rotation(); err != nil {
		return invalid("rotation: %v", err)
	}
	return nil
}

func (c *Config) rotation() ([]view.State, error) {
	out := make([]view.State, 0, len(c.Rotation))
	for _, s := range c.Rotation {
		if strings.TrimSpace(s) == "" {
			continue
		}
		st, err := view.ParseState(s)
		if err != nil {
			return nil, err
		}
		if _, ok := c.Feeds[string(st.Dataset)]; !ok {
			return nil, fmt.Errorf("%q has no feed", s)
		}
		out = append(out, st)
	}
	return out, nil
}
