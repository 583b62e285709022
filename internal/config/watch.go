package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/okian/standings/pkg/logger"
	"github.com/okian/standings/pkg/metrics"
)

// Watch reloads the config each time the file at path is written and calls
// onChange with the result. It runs until ctx is cancelled.
//
// A reload that fails to load or validate is logged and skipped; the
// previous config stays active and onChange is not called.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	log := logger.Get().Named("config")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: watch: %w", ErrLoadConfig, err)
	}
	defer watcher.Close()

	// Editors save atomically by renaming over the file, which drops a watch
	// on the file itself, so watch its directory instead.
	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("%w: watch %s: %w", ErrLoadConfig, path, err)
	}
	log.Info(ctx, "watching config for changes", logger.String("path", path))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := LoadFile(ctx, path)
			metrics.RecordConfigReload(err == nil)
			if err != nil {
				log.Error(ctx, "config reload failed, keeping previous config",
					logger.String("path", path), logger.Error(err))
				continue
			}
			log.Info(ctx, "config reloaded", logger.String("path", path))
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error(ctx, "config watcher error", logger.Error(err))
		}
	}
}
