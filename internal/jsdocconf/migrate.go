package jsdocconf

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/jsdocpreview/internal/config"
	ferrors "git.home.luguber.info/inful/jsdocpreview/internal/foundation/errors"
	"git.home.luguber.info/inful/jsdocpreview/internal/logfields"
	"git.home.luguber.info/inful/jsdocpreview/internal/paths"
)

// SettingsStore is the part of the settings store the migrator writes to.
type SettingsStore interface {
	Get() config.Settings
	Update(func(*config.Settings)) error
}

// Migrator moves the deprecated inline conf setting into a file.
type Migrator struct {
	Store  SettingsStore
	Logger *slog.Logger
}

// NewMigrator returns a Migrator that logs through logger (slog.Default when nil).
func NewMigrator(store SettingsStore, logger *slog.Logger) *Migrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{Store: store, Logger: logger}
}

// MigrateInlineConfig writes inline to outputRoot/conf.json and points the
// conf_file setting at it. It does nothing when inline is empty or a config
// file is already configured. It returns the written path and whether a
// migration happened.
func (m *Migrator) MigrateInlineConfig(inline map[string]any, outputRoot string) (string, bool, error) {
	if len(inline) == 0 || m.Store.Get().ConfFile != "" {
		return "", false, nil
	}

	target := paths.NewOutputPaths(outputRoot).ConfFile()
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return "", false, ferrors.FileSystemError("create output directory").
			WithCause(err).
			WithContext("path", filepath.Dir(target)).
			Build()
	}
	if err := writeJSON(target, inline); err != nil {
		return "", false, err
	}

	if err := m.Store.Update(func(s *config.Settings) {
		s.Conf = nil
		s.ConfFile = target
	}); err != nil {
		return "", false, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to update settings after migration").Build()
	}

	m.Logger.Warn("The inline conf setting is deprecated; it was moved to conf_file",
		slog.String(logfields.KeyPath, target))
	return target, true, nil
}

// StripInjectedLayoutOverride removes templates.default.layoutFile from
// confFile when it resolves to bundledLayout. Other layouts are kept.
// A missing or unparsable file is logged and reported as no change.
func StripInjectedLayoutOverride(confFile, bundledLayout, baseDir string, logger *slog.Logger) (bool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg, err := Load(confFile)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			logger.Info("Generator config file does not exist", slog.String(logfields.KeyPath, confFile))
		} else {
			logger.Warn("Skipping layout cleanup", slog.String(logfields.KeyPath, confFile), logfields.Error(err))
		}
		return false, nil
	}

	layout, ok := cfg.LayoutFile()
	if !ok {
		return false, nil
	}
	if filepath.Clean(paths.AsAbsolute(layout, baseDir)) != filepath.Clean(bundledLayout) {
		return false, nil
	}

	cfg.removeLayoutFile()
	if err := cfg.Save(); err != nil {
		return false, err
	}
	return true, nil
}

// BundledLayoutPath returns layout.tmpl next to the running executable.
func BundledLayoutPath() string {
	exe, err := os.Executable()
	if err != nil {
		return "layout.tmpl"
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), "layout.tmpl")
}
