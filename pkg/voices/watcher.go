package voices

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 500 * time.Millisecond

// Watch triggers Refresh when the voice directory changes, debounced so a
// burst of file events costs one scan. This is the same explicit refresh
// the HTTP surface exposes, driven by filesystem events instead of a call.
func (c *Catalog) Watch(ctx context.Context, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create voice directory watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(c.dir); err != nil {
		return fmt.Errorf("failed to watch voice directory %s: %w", c.dir, err)
	}

	var timer *time.Timer
	refresh := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Write) {
				continue
			}

			if timer == nil {
				timer = time.AfterFunc(watchDebounce, func() {
					select {
					case refresh <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(watchDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.Error("voice directory watcher error", "err", err)
		case <-refresh:
			timer = nil

			if err := c.Refresh(); err != nil {
				logger.Error("failed to refresh voice catalog", "err", err)
				continue
			}

			logger.Info("voice catalog refreshed", "voices", c.Len())
		}
	}
}
