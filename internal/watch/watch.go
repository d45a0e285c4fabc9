// Package watch re-runs the configuration pass when descriptors, settings or
// manifests change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/kingrea/droidcfg/internal/config"
	"github.com/kingrea/droidcfg/internal/namespace"
	"github.com/kingrea/droidcfg/internal/project"
)

// DefaultDebounce batches rapid saves into one re-run.
const DefaultDebounce = 500 * time.Millisecond

// Runner performs one configuration pass.
type Runner func(ctx context.Context) error

// PathSource lists the directories to watch. It is called again after every
// pass so new projects are picked up.
type PathSource func() ([]string, error)

// Options configures a Watcher.
type Options struct {
	Paths    PathSource
	Run      Runner
	Logger   *zap.Logger
	Debounce time.Duration
}

// Watcher owns an fsnotify watcher and serializes re-runs.
type Watcher struct {
	paths    PathSource
	run      Runner
	logger   *zap.Logger
	debounce time.Duration

	mu      sync.Mutex
	watched map[string]struct{}
	runs    int
}

// New validates options.
func New(opts Options) (*Watcher, error) {
	if opts.Paths == nil {
		return nil, fmt.Errorf("watch: path source is required")
	}
	if opts.Run == nil {
		return nil, fmt.Errorf("watch: runner is required")
	}
	w := &Watcher{
		paths:    opts.Paths,
		run:      opts.Run,
		logger:   opts.Logger,
		debounce: opts.Debounce,
		watched:  map[string]struct{}{},
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	return w, nil
}

// Relevant reports whether a change to path can alter the next pass.
func Relevant(path string) bool {
	base := filepath.Base(path)
	if base == config.SettingsFile || base == filepath.Base(namespace.ManifestPath) {
		return true
	}
	return project.IsDescriptorName(base)
}

// Runs returns how many passes have completed, including failed ones.
func (w *Watcher) Runs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runs
}

// Run performs an initial pass, then blocks re-running after every debounced
// burst of relevant changes until ctx is cancelled. Pass failures are logged
// and do not stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fsw.Close()

	w.sync(fsw)
	w.pass(ctx, fsw)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch stopped")
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.handle(fsw, event) {
				continue
			}
			w.logger.Debug("change detected", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			timer.Reset(w.debounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		case <-timer.C:
			w.pass(ctx, fsw)
		}
	}
}

// handle reports whether event should schedule a pass. New directories are
// added to the watch so descriptors written into them are seen.
func (w *Watcher) handle(fsw *fsnotify.Watcher, event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		w.mu.Lock()
		delete(w.watched, event.Name)
		w.mu.Unlock()
	}
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !strings.HasPrefix(filepath.Base(event.Name), ".") {
				w.add(fsw, event.Name)
			}
			return false
		}
	}
	return Relevant(event.Name)
}

func (w *Watcher) pass(ctx context.Context, fsw *fsnotify.Watcher) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	err := w.run(ctx)
	w.mu.Lock()
	w.runs++
	w.mu.Unlock()
	if err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Error("configuration failed", zap.Error(err))
	} else if err == nil {
		w.logger.Info("configuration complete", zap.Duration("took", time.Since(start)))
	}
	w.sync(fsw)
}

// sync adds every directory the path source lists. Directories that do not
// exist yet are skipped; their parent's create event adds them later.
func (w *Watcher) sync(fsw *fsnotify.Watcher) {
	paths, err := w.paths()
	if err != nil {
		w.logger.Warn("watch paths unavailable", zap.Error(err))
		return
	}
	for _, path := range paths {
		w.add(fsw, path)
	}
}

func (w *Watcher) add(fsw *fsnotify.Watcher, path string) {
	w.mu.Lock()
	_, seen := w.watched[path]
	w.mu.Unlock()
	if seen {
		return
	}
	if err := fsw.Add(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.logger.Debug("watch add failed", zap.String("path", path), zap.Error(err))
		}
		return
	}
	w.mu.Lock()
	w.watched[path] = struct{}{}
	w.mu.Unlock()
}
