package history

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStartFinishRecent(t *testing.T) {
	s := openMemory(t)
	ctx := t.Context()

	first, err := s.Start(ctx, "/ws/src/a.js")
	require.NoError(t, err)
	require.NoError(t, s.Finish(ctx, first.ID, Finish{ScanDir: "/ws/src", Outcome: OutcomeSuccess, Coalesced: 2}))

	second, err := s.Start(ctx, "/ws/src/b.js")
	require.NoError(t, err)
	require.NoError(t, s.Finish(ctx, second.ID, Finish{Outcome: OutcomeFailed, Err: errors.New("exit 1")}))

	runs, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, OutcomeFailed, runs[0].Outcome)
	assert.Equal(t, "exit 1", runs[0].Error)

	assert.Equal(t, "/ws/src", runs[1].ScanDir)
	assert.Equal(t, 2, runs[1].Coalesced)
	assert.False(t, runs[1].FinishedAt.IsZero())
}

func TestFinishUnknownRun(t *testing.T) {
	s := openMemory(t)
	err := s.Finish(t.Context(), "missing", Finish{Outcome: OutcomeSuccess})
	require.ErrorIs(t, err, ErrUnknownRun)
}

func TestRunningRecordHasNoDuration(t *testing.T) {
	s := openMemory(t)
	_, err := s.Start(t.Context(), "x.js")
	require.NoError(t, err)

	runs, err := s.Recent(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, OutcomeRunning, runs[0].Outcome)
	assert.Zero(t, runs[0].Duration())
}

func TestPrune(t *testing.T) {
	s := openMemory(t)
	ctx := t.Context()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	s.now = func() time.Time { return base.Add(-48 * time.Hour) }
	_, err := s.Start(ctx, "old.js")
	require.NoError(t, err)

	s.now = func() time.Time { return base }
	_, err = s.Start(ctx, "new.js")
	require.NoError(t, err)

	n, err := s.Prune(ctx, base.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	runs, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "new.js", runs[0].Target)
}

func TestOpenFilePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Start(t.Context(), "a.js")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	runs, err := s.Recent(t.Context(), 5)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestPrunerRunsImmediately(t *testing.T) {
	s := openMemory(t)
	s.now = func() time.Time { return time.Now().Add(-72 * time.Hour) }
	_, err := s.Start(t.Context(), "stale.js")
	require.NoError(t, err)
	s.now = time.Now

	p, err := StartPruner(s, 24*time.Hour, time.Hour, nil)
	require.NoError(t, err)
	defer func() { _ = p.Stop() }()

	require.Eventually(t, func() bool {
		runs, err := s.Recent(t.Context(), 5)
		return err == nil && len(runs) == 0
	}, 5*time.Second, 20*time.Millisecond)
}
