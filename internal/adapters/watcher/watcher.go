// Package watcher reports edits to novel state and chapter files using fsnotify.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"continuity/internal/ports"
)

const DefaultDebounce = 300 * time.Millisecond

// Watcher implements ports.ChangeWatcher. It watches the parent directories
// so editors that save by rename are still seen.
type Watcher struct {
	debounce time.Duration
	logger   *zap.Logger
}

// Ensure Watcher implements ChangeWatcher
var _ ports.ChangeWatcher = (*Watcher)(nil)

// Option configures a Watcher
type Option func(*Watcher)

// WithDebounce sets how long a file must stay quiet before it is reported
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a Watcher
func New(opts ...Option) *Watcher {
	w := &Watcher{debounce: DefaultDebounce, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch blocks until ctx is done, calling onChange once per changed path
// after each burst of writes settles. It returns nil on cancellation.
func (w *Watcher) Watch(ctx context.Context, paths []string, onChange func(path string)) error {
	if len(paths) == 0 {
		return fmt.Errorf("no files to watch")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	targets := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		targets[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	w.logger.Info("watching files", zap.Strings("paths", paths))

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	pending := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			path := filepath.Clean(ev.Name)
			if !targets[path] {
				continue
			}
			pending[path] = true
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)
			for _, p := range changed {
				w.logger.Debug("file changed", zap.String("path", p))
				onChange(p)
			}
		}
	}
}
