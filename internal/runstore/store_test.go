package runstore

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenAppliesMigrations(t *testing.T) {
	s := openTestStore(t)

	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), version)

	// Reopening an already-migrated database is a no-op.
	require.NoError(t, s.MigrateUp())
}

func TestInsertAndGetRun(t *testing.T) {
	s := openTestStore(t)

	run, err := s.InsertRun(Run{Source: "shot35628.h5 frame 12", Method: "svd"})
	require.NoError(t, err)
	assert.NotEmpty(t, run.RunID)
	assert.Equal(t, StatusRunning, run.Status)
	assert.False(t, run.StartedAt.IsZero())

	got, err := s.GetRun(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.RunID, got.RunID)
	assert.Equal(t, "shot35628.h5 frame 12", got.Source)
	assert.Equal(t, "svd", got.Method)
	assert.Nil(t, got.CompletedAt)
}

func TestGetRunNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetRun("no-such-run")
	assert.True(t, errors.Is(err, ErrNotFound), "err = %v, want ErrNotFound", err)
}

func TestCompleteRun(t *testing.T) {
	s := openTestStore(t)

	run, err := s.InsertRun(Run{Source: "spectrum", Method: "standard"})
	require.NoError(t, err)

	solution := []float64{1.5, 2.5, 0.5}
	synthetic := []float64{0.9, 1.1}
	measured := []float64{1.0, 1.2}
	require.NoError(t, s.CompleteRun(run.RunID, 0.01, 1e-6, solution, synthetic, measured))

	got, err := s.GetRun(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, got.Status)
	assert.Equal(t, 0.01, got.Alpha)
	assert.Equal(t, solution, got.Solution)
	assert.Equal(t, synthetic, got.Synthetic)
	assert.Equal(t, measured, got.Measured)
	require.NotNil(t, got.CompletedAt)

	// Completing a nonexistent run reports ErrNotFound.
	err = s.CompleteRun("missing", 1, 1, nil, nil, nil)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFailRun(t *testing.T) {
	s := openTestStore(t)

	run, err := s.InsertRun(Run{Source: "video", Method: "diff"})
	require.NoError(t, err)
	require.NoError(t, s.FailRun(run.RunID, "kernel dimensions mismatch"))

	got, err := s.GetRun(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "kernel dimensions mismatch", got.Error)
	assert.Nil(t, got.Solution)
}

func TestListRuns(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 5; i++ {
		_, err := s.InsertRun(Run{Source: "shot", Method: "standard"})
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)

	all, err := s.ListRuns(0) // default limit
	require.NoError(t, err)
	assert.Len(t, all, 5)

	// Newest first.
	assert.GreaterOrEqual(t, all[0].ID, all[1].ID)
}
