package fs

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/rescue/internal/domain"
	"github.com/bft-labs/rescue/internal/ports"
)

// DefaultDebounceDelay is how long the watcher waits after the last change
// before reloading the map.
const DefaultDebounceDelay = 100 * time.Millisecond

// MapWatcher follows a map file written by a running rescue process.
// Checkpoints replace the file by rename, so the watcher observes the
// containing directory and filters on the file name.
type MapWatcher struct {
	mu       sync.Mutex
	path     string
	delay    time.Duration
	logger   ports.Logger
	debounce *time.Timer
}

// NewMapWatcher creates a watcher for the map file at path.
func NewMapWatcher(path string, delay time.Duration, logger ports.Logger) *MapWatcher {
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}
	return &MapWatcher{path: path, delay: delay, logger: logger}
}

// Watch calls onChange with the freshly loaded map (or the load error) every
// time the file changes. It blocks until ctx is canceled.
func (w *MapWatcher) Watch(ctx context.Context, onChange func(*domain.Map, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	defer w.stopDebounce()

	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload(ctx, onChange)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("map watcher error", ports.Err(err))
		}
	}
}

func (w *MapWatcher) scheduleReload(ctx context.Context, onChange func(*domain.Map, error)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(w.delay, func() {
		if ctx.Err() != nil {
			return
		}
		m, err := ReadMapFile(w.path)
		onChange(m, err)
	})
}

func (w *MapWatcher) stopDebounce() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
}
