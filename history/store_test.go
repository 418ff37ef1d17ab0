package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportforge/element"
	"reportforge/errs"
	"reportforge/generator"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), nil, filepath.Join(t.TempDir(), "nested", "history.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleReport(finished time.Time) *generator.Report {
	return &generator.Report{
		RunID:      "run-1",
		Template:   "Sales",
		Output:     "out/sales.pptx",
		Pages:      2,
		StartedAt:  finished.Add(-time.Second),
		FinishedAt: finished,
		Slides: []generator.SlideResult{
			{Index: 0, Elements: []generator.ElementResult{
				{Slide: 0, Index: 0, Type: "text"},
				{Slide: 0, Index: 1, Type: "summary", Outcome: element.Outcome{Placeholder: true}},
			}},
			{Index: 1, Elements: []generator.ElementResult{
				{Slide: 1, Index: 0, Type: "chart", Diagnostic: &generator.Diagnostic{
					Stage: generator.StageData, Kind: errs.KindData, Message: `column "Profit" not found`,
				}},
			}},
		},
	}
}

func TestOpen_AppliesMigrationsOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")
	var logs []string
	s, err := Open(ctx, nil, path, func(m string) { logs = append(logs, m) })
	require.NoError(t, err)
	v, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(Migrations()), v)
	assert.Len(t, logs, len(Migrations()))
	require.NoError(t, s.Close())

	logs = nil
	s, err = Open(ctx, nil, path, func(m string) { logs = append(logs, m) })
	require.NoError(t, err)
	defer s.Close()
	assert.Empty(t, logs)
}

func TestRecordAndGet(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	finished := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	id, err := s.Record(ctx, FromReport(sampleReport(finished), nil))
	require.NoError(t, err)
	assert.Equal(t, "run-1", id)

	run, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, run.Status)
	assert.Equal(t, 2, run.Pages)
	assert.Equal(t, []int{1, 1, 1}, []int{run.Rendered, run.Placeholders, run.Failed})
	assert.True(t, run.FinishedAt.Equal(finished))
	require.Len(t, run.Diagnostics, 1)
	assert.Equal(t, Diagnostic{Slide: 1, Element: 0, Type: "chart", Stage: "data", Kind: "data_unavailable", Message: `column "Profit" not found`}, run.Diagnostics[0])

	// Re-recording replaces the diagnostics.
	r := FromReport(sampleReport(finished), errors.New("disk full"))
	r.Diagnostics = nil
	_, err = s.Record(ctx, r)
	require.NoError(t, err)
	run, err = s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, run.Status)
	assert.Equal(t, "disk full", run.Error)
	assert.Empty(t, run.Diagnostics)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRecord_RequiresTemplate(t *testing.T) {
	_, err := openStore(t).Record(context.Background(), Run{})
	assert.Error(t, err)
}

func TestListFiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, tpl := range []string{"A", "B", "A"} {
		_, err := s.Record(ctx, Run{Template: tpl, BatchID: "b1", FinishedAt: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}
	_, err := s.Record(ctx, Run{Template: "A", FinishedAt: base.Add(10 * time.Hour)})
	require.NoError(t, err)

	all, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.True(t, all[0].FinishedAt.After(all[1].FinishedAt))

	onlyA, err := s.List(ctx, Filter{Template: "A", BatchID: "b1"})
	require.NoError(t, err)
	assert.Len(t, onlyA, 2)

	limited, err := s.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, all[0].ID, limited[0].ID)
}

func TestFromJob(t *testing.T) {
	refused := FromJob("batch", generator.JobResult{ID: "job-1", Template: "t.yaml", Status: generator.JobFailed, Error: "no slides"})
	assert.Equal(t, Run{ID: "job-1", BatchID: "batch", Template: "t.yaml", Status: StatusFailed, Error: "no slides"}, refused)

	ok := FromJob("batch", generator.JobResult{ID: "job-2", Status: generator.JobSuccess, Report: sampleReport(time.Now())})
	assert.Equal(t, "run-1", ok.ID)
	assert.Equal(t, StatusSuccess, ok.Status)
	assert.Len(t, ok.Diagnostics, 1)
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	old := time.Now().Add(-48 * time.Hour)
	_, err := s.Record(ctx, FromReport(sampleReport(old), nil))
	require.NoError(t, err)
	_, err = s.Record(ctx, Run{Template: "fresh"})
	require.NoError(t, err)

	n, err := s.Prune(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	runs, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "fresh", runs[0].Template)
	var diags int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM run_diagnostics").Scan(&diags))
	assert.Zero(t, diags)
}

func TestRollback(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	require.NoError(t, s.Rollback(ctx, 2))
	v, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Error(t, s.Rollback(ctx, 2))
	assert.Error(t, s.Rollback(ctx, 99))
}
