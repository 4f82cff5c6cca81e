package prefs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// Watch calls fn with freshly loaded preferences whenever the file at path
// is written, created, or renamed into place. The parent directory is
// watched so atomic replacements are seen. Watch returns once the watcher is
// running; it stops when ctx is cancelled.
func Watch(ctx context.Context, path string, fn func(Prefs)) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create prefs watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch prefs dir %s: %w", dir, err)
	}

	go run(ctx, watcher, resolved, fn)
	return nil
}

func run(ctx context.Context, watcher *fsnotify.Watcher, path string, fn func(Prefs)) {
	defer func() { _ = watcher.Close() }()

	// Editors and Save emit bursts of events; reload once per burst.
	var pending time.Time
	ticker := time.NewTicker(watchDebounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				pending = time.Now()
			}

		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}

		case <-ticker.C:
			if pending.IsZero() || time.Since(pending) < watchDebounce {
				continue
			}
			pending = time.Time{}
			if _, err := os.Stat(path); err != nil {
				continue
			}
			p, _ := Load(path)
			fn(p)
		}
	}
}
