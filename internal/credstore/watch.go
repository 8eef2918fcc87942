package credstore

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the store whenever path is written to or replaced, until
// ctx is cancelled. It blocks, so callers should run it in its own
// goroutine. Reload errors are logged and do not stop the watch.
func (s *Store) Watch(ctx context.Context, path string, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !(ev.Op&(fsnotify.Write|fsnotify.Create) != 0) {
				continue
			}
			if err := s.Load(path); err != nil {
				logger.Warn("credential reload failed", slog.String("error", err.Error()))
				continue
			}
			logger.Info("credentials reloaded", slog.Int("records", s.Len()))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("credential watch error", slog.String("error", err.Error()))
		}
	}
}
