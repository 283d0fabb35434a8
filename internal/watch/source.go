// Package watch turns filesystem activity into save and settings-change
// callbacks.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/jsdocpreview/internal/logfields"
	"git.home.luguber.info/inful/jsdocpreview/internal/paths"
)

// DefaultSaveQuietPeriod collapses the burst of events one editor save emits.
const DefaultSaveQuietPeriod = 150 * time.Millisecond

// skipDirNames are never descended into.
var skipDirNames = map[string]bool{
	".git":         true,
	"node_modules": true,
}

// SourceWatcher reports saved files below a workspace root.
type SourceWatcher struct {
	root    string
	skip    []string
	onSave  func(path string)
	quiet   time.Duration
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewSourceWatcher watches root recursively. Directories in skip (typically
// the output root) and their descendants are ignored.
func NewSourceWatcher(root string, skip []string, onSave func(path string), logger *slog.Logger) (*SourceWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	sw := &SourceWatcher{
		root:    root,
		skip:    skip,
		onSave:  onSave,
		quiet:   DefaultSaveQuietPeriod,
		watcher: w,
		logger:  logger.With(logfields.Component("watch")),
		timers:  map[string]*time.Timer{},
	}
	sw.addDirsRecursive(root)
	return sw, nil
}

// SetQuietPeriod overrides the per-file debounce.
func (sw *SourceWatcher) SetQuietPeriod(d time.Duration) { sw.quiet = d }

// SetSkip replaces the skipped directories, e.g. after the output setting changed.
func (sw *SourceWatcher) SetSkip(skip []string) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.skip = skip
}

func (sw *SourceWatcher) skipped(path string) bool {
	if skipDirNames[filepath.Base(path)] {
		return true
	}
	sw.mu.Lock()
	defer sw.mu.Unlock()
	for _, s := range sw.skip {
		if s != "" && paths.IsWithin(s, path) {
			return true
		}
	}
	return false
}

func (sw *SourceWatcher) addDirsRecursive(root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && sw.skipped(path) {
			return filepath.SkipDir
		}
		if err := sw.watcher.Add(path); err != nil {
			sw.logger.Warn("watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

// Run dispatches events until ctx is done or Close is called.
func (sw *SourceWatcher) Run(ctx context.Context) error {
	sw.logger.Info("Watching workspace", logfields.Root(sw.root))
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sw.watcher.Events:
			if !ok {
				return nil
			}
			sw.handle(ev)
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return nil
			}
			sw.logger.Error("Watcher error", logfields.Error(err))
		}
	}
}

func (sw *SourceWatcher) handle(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return
	}
	if sw.skipped(ev.Name) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			sw.addDirsRecursive(ev.Name)
			return
		}
	}
	if shouldIgnoreEvent(ev.Name) {
		return
	}
	sw.schedule(ev.Name)
}

func (sw *SourceWatcher) schedule(path string) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if t, ok := sw.timers[path]; ok {
		t.Stop()
	}
	sw.timers[path] = time.AfterFunc(sw.quiet, func() {
		sw.mu.Lock()
		delete(sw.timers, path)
		sw.mu.Unlock()
		sw.logger.Debug("File saved", logfields.Path(path))
		sw.onSave(path)
	})
}

// Close stops watching and cancels pending callbacks.
func (sw *SourceWatcher) Close() error {
	sw.mu.Lock()
	for p, t := range sw.timers {
		t.Stop()
		delete(sw.timers, p)
	}
	sw.mu.Unlock()
	return sw.watcher.Close()
}

// shouldIgnoreEvent returns true for editor artifacts that are never sources.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
