// Package app wires settings, the preview server and the regeneration
// coordinator into the Controller owned by the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/browser"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/jsdocpreview/internal/config"
	"git.home.luguber.info/inful/jsdocpreview/internal/generator"
	"git.home.luguber.info/inful/jsdocpreview/internal/jsdocconf"
	"git.home.luguber.info/inful/jsdocpreview/internal/logfields"
	"git.home.luguber.info/inful/jsdocpreview/internal/metrics"
	"git.home.luguber.info/inful/jsdocpreview/internal/paths"
	"git.home.luguber.info/inful/jsdocpreview/internal/preview"
	"git.home.luguber.info/inful/jsdocpreview/internal/push"
	"git.home.luguber.info/inful/jsdocpreview/internal/regen"
)

// DefaultOpenDelay gives a freshly opened tab time to connect before the
// first regeneration starts.
const DefaultOpenDelay = 500 * time.Millisecond

// ShutdownTimeout bounds how long Close waits for a running regeneration.
const ShutdownTimeout = 30 * time.Second

// AcceptedExtensions are the saved-file extensions that trigger regeneration.
var AcceptedExtensions = []string{".js", ".jsx", ".md", ".json"}

// Opener opens url in a browser.
type Opener func(url string) error

// Store is the settings store the controller reads and updates.
type Store interface {
	Get() config.Settings
	Update(func(*config.Settings)) error
	Path() string
}

// Closer is released by Controller.Close.
type Closer interface {
	Close() error
}

// Options configure a Controller.
type Options struct {
	Workspace     string
	Store         Store
	Invoker       generator.Invoker
	Opener        Opener
	OpenDelay     time.Duration
	Logger        *slog.Logger
	Recorder      metrics.Recorder
	Registry      *prom.Registry
	History       regen.HistoryRecorder
	Relay         push.Broadcaster
	BundledLayout string
	// Closers are closed, in order, after the preview server.
	Closers []Closer
}

// Controller reacts to saves and settings changes.
type Controller struct {
	workspace     string
	store         Store
	invoker       generator.Invoker
	opener        Opener
	openDelay     time.Duration
	logger        *slog.Logger
	bundledLayout string
	closers       []Closer

	server      *preview.Server
	coordinator *regen.Coordinator
	migrator    *jsdocconf.Migrator
	broadcast   push.Broadcaster
	sink        generator.LogSink

	mu          sync.Mutex
	forceOpen   bool
	outputDirty bool
	closed      bool
}

// New builds a Controller. The preview server is not started.
func New(opts Options) (*Controller, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("settings store is required")
	}
	workspace, err := filepath.Abs(opts.Workspace)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	invoker := opts.Invoker
	if invoker == nil {
		invoker = generator.NewExecInvoker()
	}
	opener := opts.Opener
	if opener == nil {
		opener = browser.OpenURL
	}
	openDelay := opts.OpenDelay
	if openDelay < 0 {
		openDelay = 0
	} else if openDelay == 0 {
		openDelay = DefaultOpenDelay
	}
	bundled := opts.BundledLayout
	if bundled == "" {
		bundled = jsdocconf.BundledLayoutPath()
	}

	c := &Controller{
		workspace:     workspace,
		store:         opts.Store,
		invoker:       invoker,
		opener:        opener,
		openDelay:     openDelay,
		logger:        logger,
		bundledLayout: bundled,
		closers:       opts.Closers,
		migrator:      jsdocconf.NewMigrator(opts.Store, logger),
	}

	root := ""
	if out, err := c.outputPaths(); err == nil {
		root = out.WWW()
	}
	c.server = preview.New(preview.Options{
		Root:     root,
		Logger:   logger,
		Recorder: opts.Recorder,
		Registry: opts.Registry,
	})

	c.broadcast = push.Multi{c.server, opts.Relay}
	c.sink = generator.Tee{
		generator.SlogSink{Logger: logger.With(logfields.Component("generator"))},
		generator.PushSink{Broadcaster: c.broadcast},
	}
	c.coordinator = regen.New(&pipeline{c: c}, notifier{c.broadcast}, c.sink,
		regen.WithRecorder(opts.Recorder),
		regen.WithHistory(opts.History),
		regen.WithLogger(logger),
	)
	return c, nil
}

// Workspace returns the absolute workspace root.
func (c *Controller) Workspace() string { return c.workspace }

// Server exposes the preview server.
func (c *Controller) Server() *preview.Server { return c.server }

// Coordinator exposes the regeneration coordinator.
func (c *Controller) Coordinator() *regen.Coordinator { return c.coordinator }

func (c *Controller) outputPaths() (paths.OutputPaths, error) {
	root, err := paths.ResolveOutputRoot(c.store.Get().Output, c.workspace)
	if err != nil {
		return paths.OutputPaths{}, err
	}
	return paths.NewOutputPaths(root), nil
}

// OutputRoot returns the resolved output directory for the current settings.
func (c *Controller) OutputRoot() (string, error) {
	out, err := c.outputPaths()
	return out.Root, err
}

// StartServer starts the preview server on the configured port. A forced
// open requested before the server was up is honored now.
func (c *Controller) StartServer(ctx context.Context) (string, error) {
	url, err := c.server.Start(ctx, c.store.Get().Port)
	if err != nil {
		c.logger.Error("The server cannot be run, live preview will not work", logfields.Error(err))
		return "", err
	}

	c.mu.Lock()
	force := c.forceOpen
	c.forceOpen = false
	c.mu.Unlock()

	if force {
		c.open(url)
	}
	return url, nil
}

// OnSave handles a saved file.
func (c *Controller) OnSave(ctx context.Context, path string) error {
	if !c.accepts(path) {
		return nil
	}
	if !c.store.Get().AutoOpenBrowser {
		return nil
	}
	return c.OpenBrowser(ctx, false, path)
}

func (c *Controller) accepts(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	accepted := false
	for _, e := range AcceptedExtensions {
		if ext == e {
			accepted = true
			break
		}
	}
	if !accepted {
		return false
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	if settingsPath := c.store.Path(); settingsPath != "" {
		if sp, err := filepath.Abs(settingsPath); err == nil && sp == abs {
			return false
		}
	}
	if out, err := c.outputPaths(); err == nil && paths.IsWithin(out.Root, abs) {
		return false
	}
	return true
}

// OpenBrowser makes sure the server runs, opens a tab when forced or when no
// browser is connected, waits for the tab to connect, then regenerates.
// An empty source regenerates for the workspace root.
func (c *Controller) OpenBrowser(ctx context.Context, force bool, source string) error {
	openedOnStart := false
	if !c.server.Running() {
		if force {
			c.mu.Lock()
			c.forceOpen = true
			c.mu.Unlock()
		}
		if _, err := c.StartServer(ctx); err != nil {
			return err
		}
		openedOnStart = force
	}

	if !openedOnStart && (force || !c.server.HasActiveConnection()) {
		c.open(c.server.URL())
	}

	if c.openDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.openDelay):
		}
	}

	if source == "" {
		source = c.workspace
	}
	return c.Regenerate(ctx, source)
}

func (c *Controller) open(url string) {
	if url == "" {
		return
	}
	if err := c.opener(url); err != nil {
		c.logger.Warn("Failed to open browser", logfields.URL(url), logfields.Error(err))
	}
}

// OnSettingsChanged applies reloaded settings. An output change swaps the
// served root at the next regeneration. A port change restarts the server.
func (c *Controller) OnSettingsChanged(ctx context.Context, changes config.Changes) error {
	if changes.Output {
		c.mu.Lock()
		c.outputDirty = true
		c.mu.Unlock()
	}
	if changes.Port && c.server.Running() {
		url, err := c.server.Restart(ctx, c.store.Get().Port)
		if err != nil {
			return err
		}
		c.logger.Info("Preview server moved", logfields.URL(url))
	}
	return nil
}

// Regenerate requests one regeneration for source.
func (c *Controller) Regenerate(ctx context.Context, source string) error {
	return c.coordinator.Request(ctx, source)
}

// Close stops the server, waits for an in-flight regeneration to finish
// (up to ShutdownTimeout), then releases the closers. Safe to call twice.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	var firstErr error
	if err := c.server.Close(); err != nil {
		firstErr = err
	}

	waitCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := c.coordinator.WaitIdle(waitCtx); err != nil {
		c.logger.Warn("Regeneration still running at shutdown", logfields.Error(err))
	}
	for _, cl := range c.closers {
		if cl == nil {
			continue
		}
		if err := cl.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type notifier struct{ b push.Broadcaster }

func (n notifier) NotifyWillCompute() { n.b.Broadcast(push.WillCompute()) }
func (n notifier) NotifyDidCompute()  { n.b.Broadcast(push.DidCompute()) }
