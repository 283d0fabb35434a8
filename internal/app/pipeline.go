package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/jsdocpreview/internal/config"
	ferrors "git.home.luguber.info/inful/jsdocpreview/internal/foundation/errors"
	"git.home.luguber.info/inful/jsdocpreview/internal/generator"
	"git.home.luguber.info/inful/jsdocpreview/internal/jsdocconf"
	"git.home.luguber.info/inful/jsdocpreview/internal/logfields"
	"git.home.luguber.info/inful/jsdocpreview/internal/paths"
	"git.home.luguber.info/inful/jsdocpreview/internal/regen"
	"git.home.luguber.info/inful/jsdocpreview/internal/tutorials"
)

// pipeline is the regen.Runner behind the Controller.
type pipeline struct {
	c *Controller
}

// Setup prepares the output directory once per coordinator turn.
func (p *pipeline) Setup(_ context.Context) error {
	c := p.c
	out, err := c.outputPaths()
	if err != nil {
		return err
	}
	for _, dir := range []string{out.Root, out.Tutorials()} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return ferrors.FileSystemError("create output directory").
				WithCause(err).
				WithContext("path", dir).
				Build()
		}
	}

	settings := c.store.Get()
	if len(settings.Conf) > 0 {
		if _, _, err := c.migrator.MigrateInlineConfig(settings.Conf, out.Root); err != nil {
			return err
		}
	}

	c.mu.Lock()
	dirty := c.outputDirty
	c.outputDirty = false
	c.mu.Unlock()
	if dirty || c.server.Root() != out.WWW() {
		c.server.SetRoot(out.WWW())
	}
	return nil
}

// Run regenerates documentation for target.
func (p *pipeline) Run(ctx context.Context, target string) (regen.RunInfo, error) {
	c := p.c
	settings := c.store.Get()
	out, err := c.outputPaths()
	if err != nil {
		return regen.RunInfo{}, err
	}

	absTarget, err := filepath.Abs(target)
	if err != nil || !paths.IsWithin(c.workspace, absTarget) {
		c.sink.Error(fmt.Sprintf("the current source %s does not belong to any workspace", target))
		return regen.RunInfo{}, nil
	}

	opts := generator.Options{
		Destination:      out.WWW(),
		WithPrivate:      settings.WithPrivate,
		WorkingDirectory: c.workspace,
	}
	if opts.Command, err = generator.ParseCommand(settings.Generator); err != nil {
		return regen.RunInfo{}, err
	}

	if len(settings.Tutorials) > 0 {
		if _, err := tutorials.Merge(settings.Tutorials, c.workspace, out.Tutorials(), c.sink); err != nil {
			c.logger.Warn("Tutorials merge failed", logfields.Error(err))
		}
		opts.TutorialsDir = out.Tutorials()
	}

	includes, confFile, err := p.generatorConfig(settings)
	if err != nil {
		return regen.RunInfo{}, err
	}
	opts.ConfigFile = confFile

	if scanDir, ok := p.scanDirectory(absTarget, includes); ok {
		opts.ScanDirectory = scanDir
	}

	err = c.invoker.Invoke(ctx, opts, c.sink)
	return regen.RunInfo{ScanDir: opts.ScanDirectory}, err
}

// generatorConfig loads the configured conf file after stripping a layout
// override injected by older versions. A missing file is reported and
// omitted from the command line.
func (p *pipeline) generatorConfig(settings config.Settings) ([]string, string, error) {
	c := p.c
	if settings.ConfFile == "" {
		return nil, "", nil
	}
	confFile := paths.AsAbsolute(settings.ConfFile, c.workspace)

	if _, err := jsdocconf.StripInjectedLayoutOverride(confFile, c.bundledLayout, c.workspace, c.logger); err != nil {
		c.logger.Warn("Failed to clean generator config", logfields.Path(confFile), logfields.Error(err))
	}

	cfg, err := jsdocconf.Load(confFile)
	if errors.Is(err, jsdocconf.ErrNotFound) {
		c.sink.Info(fmt.Sprintf("the jsdoc configuration file does not exist : %s", confFile))
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	return cfg.Include(), confFile, nil
}

func (p *pipeline) scanDirectory(target string, includes []string) (string, bool) {
	if fi, err := os.Stat(target); err == nil && fi.IsDir() {
		return paths.ResolveScanDirectoryForDir(target, includes, p.c.workspace)
	}
	return paths.ResolveScanDirectory(target, includes, p.c.workspace)
}
