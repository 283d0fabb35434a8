package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/jsdocpreview/internal/foundation/errors"
)

// FileName is the settings file looked up in the workspace root.
const FileName = ".jsdocpreview.yaml"

// Settings is the user configuration surface read by the controller.
type Settings struct {
	Output          string   `yaml:"output"`
	ConfFile        string   `yaml:"conf_file,omitempty"`
	WithPrivate     bool     `yaml:"with_private"`
	Tutorials       []string `yaml:"tutorials,omitempty"`
	AutoOpenBrowser bool     `yaml:"auto_open_browser"`
	Port            int      `yaml:"port"`

	// Conf is the deprecated inline generator configuration. It is migrated
	// into a conf_file on the next regeneration and then cleared.
	Conf map[string]any `yaml:"conf,omitempty"`

	// Generator is the command line used to run the documentation generator.
	Generator        string        `yaml:"generator,omitempty"`
	History          string        `yaml:"history,omitempty"`
	HistoryRetention string        `yaml:"history_retention,omitempty"`
	NATS             NATSConfig    `yaml:"nats,omitempty"`
	Logging          LoggingConfig `yaml:"logging,omitempty"`
}

// NATSConfig configures the optional relay of push events.
type NATSConfig struct {
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// Enabled reports whether a NATS URL is configured.
func (n NATSConfig) Enabled() bool { return n.URL != "" }

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Retention parses HistoryRetention, falling back to the default on bad input.
func (s Settings) Retention() time.Duration {
	d, err := time.ParseDuration(s.HistoryRetention)
	if err != nil || d <= 0 {
		return DefaultHistoryRetention
	}
	return d
}

// Clone returns a deep copy so callers cannot mutate store state.
func (s Settings) Clone() Settings {
	out := s
	out.Tutorials = slices.Clone(s.Tutorials)
	out.Conf = cloneMap(s.Conf)
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = cloneMap(nested)
			continue
		}
		out[k] = v
	}
	return out
}

// Load reads settings from path. A missing file yields defaults.
// Environment variables referenced as ${VAR} are expanded after .env files
// next to the settings file are loaded.
func Load(path string) (Settings, error) {
	settings := Defaults()

	if _, err := LoadEnvFiles(filepath.Dir(path)); err != nil {
		return settings, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return settings, nil
	}
	if err != nil {
		return settings, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read settings file").
			WithContext("path", path).
			Build()
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &settings); err != nil {
		return Defaults(), ferrors.WrapError(err, ferrors.CategoryConfig, "failed to parse settings file").
			WithContext("path", path).
			Build()
	}
	applyDefaults(&settings)

	if err := Validate(settings); err != nil {
		return settings, err
	}
	return settings, nil
}

// Save writes settings to path atomically.
func Save(path string, settings Settings) error {
	data, err := yaml.Marshal(&settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	return writeFileAtomic(path, data)
}

// Init creates a settings file with default values.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return ferrors.ValidationError(fmt.Sprintf("settings file already exists: %s (use --force to overwrite)", path)).Build()
	}
	return Save(path, Defaults())
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "create temp settings file").Build()
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write settings file").Build()
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "close settings file").Build()
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "replace settings file").
			WithContext("path", path).
			Build()
	}
	return nil
}
