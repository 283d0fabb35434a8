package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	ferrors "git.home.luguber.info/inful/jsdocpreview/internal/foundation/errors"
)

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	settings, err := Load(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.Port != DefaultPort {
		t.Fatalf("expected default port %d, got %d", DefaultPort, settings.Port)
	}
	if !settings.AutoOpenBrowser {
		t.Fatalf("expected auto_open_browser default true")
	}
	if settings.Generator != DefaultGenerator {
		t.Fatalf("expected generator %q, got %q", DefaultGenerator, settings.Generator)
	}
	if settings.Retention() != DefaultHistoryRetention {
		t.Fatalf("expected retention %s, got %s", DefaultHistoryRetention, settings.Retention())
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeSettings(t, `
output: build/docs
port: 9000
auto_open_browser: false
with_private: true
tutorials:
  - docs/**/*.md
generator: npx jsdoc
logging:
  level: WARNING
  format: JSON
`)
	settings, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.Output != "build/docs" || settings.Port != 9000 {
		t.Fatalf("unexpected output/port: %q %d", settings.Output, settings.Port)
	}
	if settings.AutoOpenBrowser {
		t.Fatalf("expected auto_open_browser false")
	}
	if !settings.WithPrivate || len(settings.Tutorials) != 1 {
		t.Fatalf("unexpected with_private/tutorials: %+v", settings)
	}
	if settings.Logging.Level != string(LogLevelWarn) || settings.Logging.Format != string(LogFormatJSON) {
		t.Fatalf("logging not normalized: %+v", settings.Logging)
	}
	if settings.NATS.Subject != DefaultNATSSubject {
		t.Fatalf("expected default nats subject, got %q", settings.NATS.Subject)
	}
}

func TestLoadExpandsEnvFromDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("JSDOCPREVIEW_TEST_NATS", "")
	if err := os.Unsetenv("JSDOCPREVIEW_TEST_NATS"); err != nil {
		t.Fatalf("unsetenv: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("JSDOCPREVIEW_TEST_NATS=nats://127.0.0.1:4222\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte("nats:\n  url: ${JSDOCPREVIEW_TEST_NATS}\n"), 0o600); err != nil {
		t.Fatalf("write settings: %v", err)
	}

	settings, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.NATS.URL != "nats://127.0.0.1:4222" {
		t.Fatalf("expected expanded url, got %q", settings.NATS.URL)
	}
	if !settings.NATS.Enabled() {
		t.Fatalf("expected relay enabled")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeSettings(t, "port: [unclosed\n")
	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if !ferrors.HasCategory(err, ferrors.CategoryConfig) {
		t.Fatalf("expected config category, got %v", ferrors.GetCategory(err))
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]Settings{
		"port":      {Port: 70000},
		"retention": {Port: 1, HistoryRetention: "soon"},
		"tutorial":  {Port: 1, Tutorials: []string{"ok/*.md", ""}},
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			err := Validate(s)
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !ferrors.HasCategory(err, ferrors.CategoryValidation) {
				t.Fatalf("expected validation category, got %v", ferrors.GetCategory(err))
			}
		})
	}
}

func TestRetentionFallsBackOnInvalid(t *testing.T) {
	if got := (Settings{HistoryRetention: "2h"}).Retention(); got != 2*time.Hour {
		t.Fatalf("expected 2h, got %s", got)
	}
	if got := (Settings{HistoryRetention: "-1h"}).Retention(); got != DefaultHistoryRetention {
		t.Fatalf("expected default, got %s", got)
	}
}

func TestInitRefusesOverwriteWithoutForce(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := Init(path, false); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := Init(path, false); err == nil {
		t.Fatalf("expected error on second init")
	}
	if err := Init(path, true); err != nil {
		t.Fatalf("forced init: %v", err)
	}
	settings, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.Port != DefaultPort {
		t.Fatalf("expected default port after init, got %d", settings.Port)
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := Settings{
		Tutorials: []string{"a"},
		Conf:      map[string]any{"source": map[string]any{"include": "src"}},
	}
	cp := orig.Clone()
	cp.Tutorials[0] = "b"
	cp.Conf["source"].(map[string]any)["include"] = "lib"

	if orig.Tutorials[0] != "a" {
		t.Fatalf("tutorials shared with clone")
	}
	if orig.Conf["source"].(map[string]any)["include"] != "src" {
		t.Fatalf("conf shared with clone")
	}
}
