package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher re-runs a callback when watched documents change on disk.
type Watcher struct {
	logger   zerolog.Logger
	debounce time.Duration
}

// NewWatcher returns a document watcher. A non-positive debounce uses
// 500ms; editors often emit several events per save.
func NewWatcher(logger zerolog.Logger, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		logger:   logger.With().Str("component", "config-watcher").Logger(),
		debounce: debounce,
	}
}

// Watch blocks until the context is cancelled, invoking onChange with
// the changed path after each write or create event. Watching is done
// on the containing directories so files replaced by rename are still
// picked up.
func (w *Watcher) Watch(ctx context.Context, paths []string, onChange func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	watched := make(map[string]struct{}, len(paths))
	dirs := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", p, err)
		}
		watched[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	w.logger.Info().Int("files", len(watched)).Int("directories", len(dirs)).Msg("watching documents")

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if _, ok := watched[abs]; !ok {
				continue
			}
			w.logger.Debug().Str("file", abs).Str("op", event.Op.String()).Msg("document changed")
			if timer != nil {
				timer.Stop()
			}
			changed := abs
			timer = time.AfterFunc(w.debounce, func() { onChange(changed) })

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("watcher error")
		}
	}
}
