package pattern

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDebounce collapses the event bursts editors produce into one
// reload.
const reloadDebounce = 100 * time.Millisecond

// Watch reloads the library whenever a pattern file under its directory
// changes. It starts the event loop and returns; the loop exits when ctx
// is cancelled.
func (l *Library) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create pattern watcher: %w", err)
	}
	if err := watcher.Add(l.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", l.dir, err)
	}

	go l.watch(ctx, watcher)
	return nil
}

func (l *Library) watch(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	var mu sync.Mutex
	var timer *time.Timer

	scheduleReload := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(reloadDebounce, func() {
			if err := l.Load(); err != nil {
				l.logger.Error("pattern reload failed", zap.Error(err))
			}
		})
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".pattern.json") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			l.logger.Debug("pattern file changed",
				zap.String("file", filepath.Base(event.Name)),
				zap.String("op", event.Op.String()))
			scheduleReload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			l.logger.Warn("pattern watcher error", zap.Error(err))

		case <-ctx.Done():
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
			return
		}
	}
}
