package jsdocconf

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/jsdocpreview/internal/config"
	ferrors "git.home.luguber.info/inful/jsdocpreview/internal/foundation/errors"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "conf.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.json")
	writeFile(t, path, "{not json")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestInclude(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.json")

	writeFile(t, path, `{"source":{"include":["src","lib",3]}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"src", "lib"}, cfg.Include())

	writeFile(t, path, `{"source":{"include":"src"}}`)
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"src"}, cfg.Include())

	writeFile(t, path, `{"opts":{}}`)
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Include())
}

func TestMigrateInlineConfig(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	store := config.NewMemoryStore(config.Settings{
		Port: 8686,
		Conf: map[string]any{"source": map[string]any{"include": []any{"src"}}},
	})
	m := NewMigrator(store, nil)

	written, migrated, err := m.MigrateInlineConfig(store.Get().Conf, out)
	require.NoError(t, err)
	require.True(t, migrated)
	assert.Equal(t, filepath.Join(out, "conf.json"), written)

	doc := readJSON(t, written)
	assert.Equal(t, map[string]any{"include": []any{"src"}}, doc["source"])

	data, err := os.ReadFile(written)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"source\"")

	settings := store.Get()
	assert.Nil(t, settings.Conf)
	assert.Equal(t, written, settings.ConfFile)

	// A second call is a no-op.
	_, migrated, err = m.MigrateInlineConfig(map[string]any{"x": 1}, out)
	require.NoError(t, err)
	assert.False(t, migrated)
}

func TestMigrateInlineConfigSkips(t *testing.T) {
	out := t.TempDir()

	store := config.NewMemoryStore(config.Settings{Port: 1})
	_, migrated, err := NewMigrator(store, nil).MigrateInlineConfig(nil, out)
	require.NoError(t, err)
	assert.False(t, migrated)

	store = config.NewMemoryStore(config.Settings{Port: 1, ConfFile: "/existing/conf.json"})
	_, migrated, err = NewMigrator(store, nil).MigrateInlineConfig(map[string]any{"a": 1}, out)
	require.NoError(t, err)
	assert.False(t, migrated)
	assert.NoFileExists(t, filepath.Join(out, "conf.json"))
}

func TestStripInjectedLayoutOverride(t *testing.T) {
	dir := t.TempDir()
	bundled := filepath.Join(dir, "ext", "layout.tmpl")
	path := filepath.Join(dir, "conf.json")
	writeFile(t, path, `{
  "opts": {"recurse": true, "depth": 10},
  "templates": {"default": {"layoutFile": "ext/../ext/layout.tmpl", "outputSourceFiles": false}}
}`)

	changed, err := StripInjectedLayoutOverride(path, bundled, dir, nil)
	require.NoError(t, err)
	assert.True(t, changed)

	doc := readJSON(t, path)
	assert.Equal(t, map[string]any{"outputSourceFiles": false}, doc["templates"].(map[string]any)["default"])
	assert.Equal(t, map[string]any{"recurse": true, "depth": float64(10)}, doc["opts"])
}

func TestStripKeepsOtherLayouts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.json")
	body := `{"templates":{"default":{"layoutFile":"mine/layout.tmpl"}}}`
	writeFile(t, path, body)

	changed, err := StripInjectedLayoutOverride(path, filepath.Join(dir, "ext", "layout.tmpl"), dir, nil)
	require.NoError(t, err)
	assert.False(t, changed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, body, string(data))
}

func TestStripToleratesMissingAndMalformed(t *testing.T) {
	dir := t.TempDir()

	changed, err := StripInjectedLayoutOverride(filepath.Join(dir, "missing.json"), "/x/layout.tmpl", dir, nil)
	require.NoError(t, err)
	assert.False(t, changed)

	bad := filepath.Join(dir, "bad.json")
	writeFile(t, bad, "[[")
	changed, err = StripInjectedLayoutOverride(bad, "/x/layout.tmpl", dir, nil)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestBundledLayoutPath(t *testing.T) {
	assert.Equal(t, "layout.tmpl", filepath.Base(BundledLayoutPath()))
}
