package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig holds configuration for the config watcher.
type WatcherConfig struct {
	// Debounce collapses bursts of writes (editors often write, rename and
	// chmod in quick succession) into one reload.
	Debounce time.Duration
	Logger   *slog.Logger
}

// ConfigWatcher calls onChange when any watched config file changes.
type ConfigWatcher struct {
	debounce time.Duration
	logger   *slog.Logger
	onChange func()
	watcher  *fsnotify.Watcher

	mu    sync.Mutex
	files map[string]struct{}
	dirs  map[string]struct{}
}

// NewConfigWatcher creates a watcher. Call SetFiles before Run.
func NewConfigWatcher(cfg WatcherConfig, onChange func()) (*ConfigWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ConfigWatcher{
		debounce: debounce,
		logger:   logger,
		onChange: onChange,
		watcher:  w,
		files:    make(map[string]struct{}),
		dirs:     make(map[string]struct{}),
	}, nil
}

// SetFiles replaces the watched file set. Parent directories are watched so
// that files replaced by rename are still seen.
func (w *ConfigWatcher) SetFiles(files []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	nextFiles := make(map[string]struct{}, len(files))
	nextDirs := make(map[string]struct{})
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", f, err)
		}
		nextFiles[abs] = struct{}{}
		nextDirs[filepath.Dir(abs)] = struct{}{}
	}

	for dir := range w.dirs {
		if _, keep := nextDirs[dir]; !keep {
			_ = w.watcher.Remove(dir)
		}
	}
	for dir := range nextDirs {
		if _, have := w.dirs[dir]; have {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			w.logger.Warn("failed to watch config directory", "dir", dir, "error", err)
			delete(nextDirs, dir)
		}
	}

	w.files = nextFiles
	w.dirs = nextDirs
	w.logger.Debug("watching config files", "files", len(nextFiles), "dirs", len(nextDirs))
	return nil
}

func (w *ConfigWatcher) tracked(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.files[abs]
	return ok
}

// Run watches until ctx is cancelled, then closes the underlying watcher.
func (w *ConfigWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	w.logger.Info("config watcher started", "debounce", w.debounce)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("config watcher stopped")
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !w.tracked(ev.Name) {
				continue
			}
			w.logger.Debug("config file changed", "file", ev.Name, "op", ev.Op.String())
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", "error", err)
		case <-timer.C:
			w.fire()
		}
	}
}

func (w *ConfigWatcher) fire() {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			w.logger.Error("config reload panic recovered", "error", err)
		}
	}()
	w.onChange()
}
