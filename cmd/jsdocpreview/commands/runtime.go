package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/jsdocpreview/internal/app"
	"git.home.luguber.info/inful/jsdocpreview/internal/config"
	"git.home.luguber.info/inful/jsdocpreview/internal/history"
	"git.home.luguber.info/inful/jsdocpreview/internal/logfields"
	"git.home.luguber.info/inful/jsdocpreview/internal/metrics"
	"git.home.luguber.info/inful/jsdocpreview/internal/paths"
	"git.home.luguber.info/inful/jsdocpreview/internal/relay"
)

// runtime holds everything a long-running or one-shot command shares.
type runtime struct {
	logger     *slog.Logger
	workspace  string
	store      *config.Store
	registry   *prom.Registry
	history    *history.Store
	controller *app.Controller
}

type runtimeOptions struct {
	// opener overrides the browser opener; used by tests.
	opener app.Opener
	// relay enables the NATS relay when configured.
	relay bool
}

func newRuntime(g *Global, root *CLI, ws WorkspaceFlag, ro runtimeOptions) (*runtime, error) {
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workspace, err := ws.Root()
	if err != nil {
		return nil, err
	}
	settingsPath, err := root.SettingsPath(workspace)
	if err != nil {
		return nil, err
	}
	store, err := config.OpenStore(settingsPath)
	if err != nil {
		return nil, err
	}
	settings := store.Get()

	rt := &runtime{
		logger:    logger,
		workspace: workspace,
		store:     store,
		registry:  prom.NewRegistry(),
	}
	recorder := metrics.NewPrometheusRecorder(rt.registry)

	opts := app.Options{
		Workspace: workspace,
		Store:     store,
		Opener:    ro.opener,
		Logger:    logger,
		Recorder:  recorder,
		Registry:  rt.registry,
	}

	if hist, err := openHistory(settings, workspace); err != nil {
		logger.Warn("Run history disabled", logfields.Error(err))
	} else {
		rt.history = hist
		opts.History = hist
	}

	if ro.relay && settings.NATS.Enabled() {
		r, err := relay.Connect(settings.NATS.URL, settings.NATS.Subject, workspace, logger)
		if err != nil {
			logger.Warn("NATS relay disabled", logfields.Error(err))
		} else {
			opts.Relay = r
			opts.Closers = append(opts.Closers, r)
		}
	}
	if rt.history != nil {
		opts.Closers = append(opts.Closers, rt.history)
	}

	ctrl, err := app.New(opts)
	if err != nil {
		for _, c := range opts.Closers {
			_ = c.Close()
		}
		return nil, err
	}
	rt.controller = ctrl
	return rt, nil
}

// Close stops the server and releases the relay and history.
func (rt *runtime) Close() error {
	return rt.controller.Close()
}

// historyPath resolves the history setting; the default lives in the output root.
func historyPath(settings config.Settings, workspace string) (string, error) {
	if settings.History != "" {
		return paths.AsAbsolute(settings.History, workspace), nil
	}
	out, err := paths.ResolveOutputRoot(settings.Output, workspace)
	if err != nil {
		return "", err
	}
	return filepath.Join(out, config.DefaultHistoryFile), nil
}

func openHistory(settings config.Settings, workspace string) (*history.Store, error) {
	path, err := historyPath(settings, workspace)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	return history.Open(path)
}
