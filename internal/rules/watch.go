package rules

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the library whenever a rule file in its directory
// changes. It reloads once as soon as the directory is watched, so
// changes made while the watch was being set up are not missed. It
// blocks until ctx is canceled. Reload failures are logged and the
// previous rule set stays active.
func (l *Library) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create rules watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(l.dir); err != nil {
		return fmt.Errorf("failed to watch rules directory: %w", err)
	}
	if err := l.Reload(); err != nil {
		l.logger.Warn("rule reload failed, keeping previous rule set", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			ext := filepath.Ext(event.Name)
			if ext != ".yaml" && ext != ".yml" {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			l.logger.Debug("rule file changed, reloading", "file", event.Name, "op", event.Op.String())
			if err := l.Reload(); err != nil {
				l.logger.Warn("rule reload failed, keeping previous rule set", "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("rules watcher error", "error", err)
		}
	}
}
