package commands

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/jsdocpreview/internal/config"
	"git.home.luguber.info/inful/jsdocpreview/internal/paths"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Settings file path (default: .jsdocpreview.yaml in the workspace root)"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Watch    WatchCmd    `cmd:"" help:"Serve the preview and regenerate documentation on save"`
	Generate GenerateCmd `cmd:"" help:"Regenerate documentation once without serving it"`
	Migrate  MigrateCmd  `cmd:"" help:"Move deprecated inline generator config into a conf file"`
	History  HistoryCmd  `cmd:"" help:"Show recent regeneration runs"`
	Init     InitCmd     `cmd:"" help:"Write a default settings file"`
}

// AfterApply runs after flag parsing; setup logging once. The level and
// format come from the settings file unless --verbose forces debug.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	format := config.LogFormatText
	if path, err := c.SettingsPath(""); err == nil {
		if settings, err := config.Load(path); err == nil {
			level = config.NormalizeLogLevel(settings.Logging.Level).SlogLevel()
			format = config.NormalizeLogFormat(settings.Logging.Format)
		}
	}
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(newLogger(os.Stderr, level, format))
	return nil
}

func newLogger(w io.Writer, level slog.Level, format config.LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// SettingsPath returns --config, or the settings file in the workspace root
// detected from dir.
func (c *CLI) SettingsPath(dir string) (string, error) {
	if c.Config != "" {
		return filepath.Abs(c.Config)
	}
	root, err := resolveWorkspace(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, config.FileName), nil
}

// WorkspaceFlag selects the workspace; the enclosing git worktree wins over
// the given directory.
type WorkspaceFlag struct {
	Workspace string `short:"w" name:"workspace" help:"Workspace directory (default: current directory)"`
}

// Root resolves the workspace root.
func (w WorkspaceFlag) Root() (string, error) {
	return resolveWorkspace(w.Workspace)
}

func resolveWorkspace(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	return paths.DetectWorkspaceRoot(dir)
}
