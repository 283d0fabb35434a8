package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/jsdocpreview/internal/config"
	"git.home.luguber.info/inful/jsdocpreview/internal/history"
	"git.home.luguber.info/inful/jsdocpreview/internal/logfields"
	"git.home.luguber.info/inful/jsdocpreview/internal/paths"
	"git.home.luguber.info/inful/jsdocpreview/internal/watch"
)

// WatchCmd serves the preview and regenerates on every save until interrupted.
type WatchCmd struct {
	WorkspaceFlag
	Open bool `help:"Open the preview in a browser at startup"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return w.run(ctx, g, root, runtimeOptions{relay: true})
}

func (w *WatchCmd) run(ctx context.Context, g *Global, root *CLI, ro runtimeOptions) error {
	rt, err := newRuntime(g, root, w.WorkspaceFlag, ro)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()
	logger := rt.logger
	ctrl := rt.controller

	url, err := ctrl.StartServer(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Preview available at %s\n", url)

	if rt.history != nil {
		pruner, err := history.StartPruner(rt.history, rt.store.Get().Retention(), history.DefaultPruneInterval, logger)
		if err != nil {
			logger.Warn("History pruning disabled", logfields.Error(err))
		} else {
			defer func() { _ = pruner.Stop() }()
		}
	}

	outRoot, _ := ctrl.OutputRoot()
	src, err := watch.NewSourceWatcher(rt.workspace, []string{outRoot}, func(path string) {
		if err := ctrl.OnSave(ctx, path); err != nil {
			logger.Error("Regeneration failed", logfields.Path(path), logfields.Error(err))
		}
	}, logger)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()
	go func() { _ = src.Run(ctx) }()

	settingsWatcher, err := watch.NewSettingsWatcher(rt.store.Path(), rt.store, func(changes config.Changes) {
		if changes.Output {
			if out, err := paths.ResolveOutputRoot(rt.store.Get().Output, rt.workspace); err == nil {
				src.SetSkip([]string{out})
			}
		}
		if err := ctrl.OnSettingsChanged(ctx, changes); err != nil {
			logger.Error("Failed to apply settings", logfields.Error(err))
		}
	}, logger)
	if err != nil {
		return err
	}
	if err := settingsWatcher.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = settingsWatcher.Stop() }()

	if w.Open {
		go func() {
			if err := ctrl.OpenBrowser(ctx, true, ""); err != nil {
				logger.Error("Regeneration failed", logfields.Error(err))
			}
		}()
	}

	<-ctx.Done()
	logger.Info("Shutdown signal received, stopping preview")
	return nil
}
