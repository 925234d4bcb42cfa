package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paddock-labs/equinet/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleReport(runID string, sources ...string) *model.Report {
	report := &model.Report{
		RunID:     runID,
		StartedAt: time.Now().UTC().Truncate(time.Second),
		Elapsed:   3 * time.Second,
		Sources:   sources,
		Totals:    map[model.RecordKind]int{model.KindResults: 2},
	}
	for _, src := range sources {
		report.Outcomes = append(report.Outcomes, model.SourceOutcome{
			Source: src,
			Status: model.SourceSuccess,
		})
	}
	return report
}

func TestRecordAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	report := sampleReport("run-1", "fei", "usef")
	report.Errors = []model.SourceError{{Source: "usef", Message: "no data retrieved"}}
	require.NoError(t, s.RecordRun(ctx, report))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, report.RunID, got.RunID)
	assert.Equal(t, report.Sources, got.Sources)
	assert.Equal(t, 2, got.Totals[model.KindResults])
	require.Len(t, got.Errors, 1)
	assert.Equal(t, "usef", got.Errors[0].Source)
}

func TestGetRunNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := sampleReport("run-1", "fei")
	first.StartedAt = time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, s.RecordRun(ctx, first))
	require.NoError(t, s.RecordRun(ctx, sampleReport("run-2", "fei", "usef")))

	runs, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	// Newest first
	assert.Equal(t, "run-2", runs[0].RunID)
	assert.Equal(t, 2, runs[0].Sources)
	assert.Equal(t, "run-1", runs[1].RunID)
}

func TestListRunsFilterBySource(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordRun(ctx, sampleReport("run-1", "fei")))
	require.NoError(t, s.RecordRun(ctx, sampleReport("run-2", "usef", "allbreed")))

	runs, err := s.ListRuns(ctx, RunFilter{Source: "usef"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-2", runs[0].RunID)

	// "use" must not match "usef"
	runs, err = s.ListRuns(ctx, RunFilter{Source: "use"})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestListRunsLimitOffset(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"run-1", "run-2", "run-3"} {
		report := sampleReport(id, "fei")
		report.StartedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.RecordRun(ctx, report))
	}

	runs, err := s.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-2", runs[0].RunID)
}

func TestRecordRunDuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordRun(ctx, sampleReport("run-1", "fei")))
	assert.Error(t, s.RecordRun(ctx, sampleReport("run-1", "fei")))
}
