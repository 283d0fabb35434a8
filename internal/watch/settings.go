package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/jsdocpreview/internal/config"
	"git.home.luguber.info/inful/jsdocpreview/internal/logfields"
)

// DefaultSettingsDebounce groups rapid writes to the settings file.
const DefaultSettingsDebounce = 500 * time.Millisecond

// Reloader re-reads settings and reports what changed.
type Reloader interface {
	Reload() (config.Changes, error)
}

// SettingsWatcher monitors the settings file and reloads it on change.
type SettingsWatcher struct {
	path     string
	store    Reloader
	onChange func(config.Changes)
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration

	reloadCh chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSettingsWatcher returns a watcher for the settings file at path.
func NewSettingsWatcher(path string, store Reloader, onChange func(config.Changes), logger *slog.Logger) (*SettingsWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve settings path: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &SettingsWatcher{
		path:     abs,
		store:    store,
		onChange: onChange,
		watcher:  w,
		logger:   logger.With(logfields.Component("settings")),
		debounce: DefaultSettingsDebounce,
		reloadCh: make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}, nil
}

// SetDebounce overrides the debounce window.
func (sw *SettingsWatcher) SetDebounce(d time.Duration) { sw.debounce = d }

// Start watches the directory holding the settings file; watching the
// directory survives editors that replace the file on save.
func (sw *SettingsWatcher) Start(ctx context.Context) error {
	dir := filepath.Dir(sw.path)
	if err := sw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch settings directory %s: %w", dir, err)
	}
	sw.logger.Info("Watching settings", logfields.Path(sw.path))

	go sw.watchLoop(ctx)
	go sw.reloadLoop(ctx)
	return nil
}

// Stop ends both loops and closes the watcher.
func (sw *SettingsWatcher) Stop() error {
	var err error
	sw.stopOnce.Do(func() {
		close(sw.stopCh)
		err = sw.watcher.Close()
	})
	return err
}

func (sw *SettingsWatcher) watchLoop(ctx context.Context) {
	name := filepath.Base(sw.path)
	for {
		select {
		case <-ctx.Done():
			return
		case <-sw.stopCh:
			return
		case ev, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			switch {
			case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create), ev.Has(fsnotify.Rename):
				sw.trigger()
			case ev.Has(fsnotify.Remove):
				sw.logger.Warn("Settings file removed", logfields.Path(ev.Name))
			}
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.logger.Error("Settings watcher error", logfields.Error(err))
		}
	}
}

func (sw *SettingsWatcher) trigger() {
	select {
	case sw.reloadCh <- struct{}{}:
	default:
	}
}

func (sw *SettingsWatcher) reloadLoop(ctx context.Context) {
	var timer *time.Timer
	stop := func() {
		if timer != nil {
			timer.Stop()
		}
	}
	for {
		select {
		case <-ctx.Done():
			stop()
			return
		case <-sw.stopCh:
			stop()
			return
		case <-sw.reloadCh:
			stop()
			timer = time.AfterFunc(sw.debounce, sw.reload)
		}
	}
}

func (sw *SettingsWatcher) reload() {
	changes, err := sw.store.Reload()
	if err != nil {
		sw.logger.Error("Failed to reload settings", logfields.Error(err))
		return
	}
	if !changes.Any() {
		return
	}
	sw.logger.Info("Settings reloaded",
		slog.Bool("output_changed", changes.Output),
		slog.Bool("port_changed", changes.Port))
	sw.onChange(changes)
}
