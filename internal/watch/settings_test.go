package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/jsdocpreview/internal/config"
)

func TestSettingsWatcherReportsChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, config.FileName)
	require.NoError(t, os.WriteFile(path, []byte("port: 9000\n"), 0o600))

	store, err := config.OpenStore(path)
	require.NoError(t, err)

	changes := make(chan config.Changes, 4)
	sw, err := NewSettingsWatcher(path, store, func(c config.Changes) { changes <- c }, nil)
	require.NoError(t, err)
	sw.SetDebounce(20 * time.Millisecond)
	require.NoError(t, sw.Start(t.Context()))
	defer func() { _ = sw.Stop() }()

	require.NoError(t, os.WriteFile(path, []byte("port: 9001\noutput: docs-out\n"), 0o600))

	select {
	case c := <-changes:
		assert.True(t, c.Port)
		assert.True(t, c.Output)
	case <-time.After(3 * time.Second):
		t.Fatal("no settings change reported")
	}
	assert.Equal(t, 9001, store.Get().Port)
}

func TestSettingsWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, config.FileName)
	store := config.NewMemoryStore(config.Defaults())

	called := make(chan struct{}, 1)
	sw, err := NewSettingsWatcher(path, store, func(config.Changes) { called <- struct{}{} }, nil)
	require.NoError(t, err)
	sw.SetDebounce(10 * time.Millisecond)
	require.NoError(t, sw.Start(t.Context()))
	defer func() { _ = sw.Stop() }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o600))

	select {
	case <-called:
		t.Fatal("unexpected change callback")
	case <-time.After(200 * time.Millisecond):
	}
	require.NoError(t, sw.Stop())
	require.NoError(t, sw.Stop())
}
