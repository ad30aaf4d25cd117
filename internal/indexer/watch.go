package indexer

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/s950329/qmd-bridge/internal/tenant"
)

// watch is one tenant's filesystem observer. fsnotify watches are not
// recursive, so every directory under the tenant root is registered, and
// newly created directories are added as their create events arrive.
type watch struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger
	done     chan struct{}
}

func newWatch(t tenant.Tenant, debounce time.Duration, logger *slog.Logger) (*watch, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &watch{fsw: fsw, debounce: debounce, logger: logger, done: make(chan struct{})}
	if err := w.addRecursive(t.Path); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// addRecursive registers path and every directory below it. Unreadable
// subdirectories are skipped rather than failing the whole watch.
func (w *watch) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			w.logger.Warn("skipping unreadable path", slog.String("path", path))
			return fs.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("failed to watch directory",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
		return nil
	})
}

// events adapts the fsnotify stream: directory creations extend the watch,
// then every event is forwarded for debouncing.
func (w *watch) events() <-chan fsnotify.Event {
	out := make(chan fsnotify.Event)
	go func() {
		defer close(out)
		for ev := range w.fsw.Events {
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = w.addRecursive(ev.Name)
				}
			}
			select {
			case out <- ev:
			case <-w.done:
				return
			}
		}
	}()
	return out
}

func (w *watch) errors() <-chan error {
	return w.fsw.Errors
}

func (w *watch) close() {
	close(w.done)
	_ = w.fsw.Close()
}
