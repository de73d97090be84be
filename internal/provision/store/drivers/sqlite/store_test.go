package sqlite_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/provision/internal/provision/domain"
	"github.com/aussiebroadwan/provision/internal/provision/store"
	"github.com/aussiebroadwan/provision/internal/provision/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

func newLedger(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	return s
}

var base = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func TestRunLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newLedger(t)

	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.CreateRun(ctx, domain.RunSummary{
		ID:        "01HZRUN",
		Mode:      "all",
		Total:     3,
		StartedAt: base,
	}))

	results := []domain.JobResult{
		{Identifier: "b@x", Label: "Mail", Outcome: domain.OutcomeSuccess, Message: "ok", Status: domain.StatusNotStarted, Duration: 1500 * time.Millisecond, FinishedAt: base.Add(time.Second)},
		{Identifier: "a@x", Label: "Mail", Outcome: domain.OutcomeError, Message: "login failed: bad credentials", Status: domain.StatusPartial, FinishedAt: base.Add(2 * time.Second)},
		{Identifier: "a@x", Label: "Mail", Outcome: domain.OutcomeSkipped, Message: "duplicate entry", FinishedAt: base.Add(2 * time.Second)},
	}
	for _, res := range results {
		require.NoError(t, s.RecordJob(ctx, "01HZRUN", res))
	}

	detail, err := s.GetRun(ctx, "01HZRUN")
	require.NoError(t, err)
	require.Nil(t, detail.FinishedAt)
	require.Equal(t, results, detail.Results)

	report := domain.NewReport(results, base, base.Add(3*time.Second))
	require.NoError(t, s.FinishRun(ctx, "01HZRUN", report))

	detail, err = s.GetRun(ctx, "01HZRUN")
	require.NoError(t, err)
	require.NotNil(t, detail.FinishedAt)
	require.Equal(t, base.Add(3*time.Second), *detail.FinishedAt)
	require.Equal(t, 1, detail.Success)
	require.Equal(t, 1, detail.Error)
	require.Equal(t, 1, detail.Skipped)
	require.Equal(t, base, detail.StartedAt)
}

func TestUnknownRun(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newLedger(t)

	_, err := s.GetRun(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, s.RecordJob(ctx, "missing", domain.JobResult{Identifier: "a@x"}), store.ErrNotFound)
	require.ErrorIs(t, s.FinishRun(ctx, "missing", domain.Report{}), store.ErrNotFound)
}

func TestListAndPrune(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newLedger(t)

	for i := range 5 {
		id := fmt.Sprintf("run-%d", i)
		require.NoError(t, s.CreateRun(ctx, domain.RunSummary{ID: id, Mode: "single", Total: 1, StartedAt: base.Add(time.Duration(i) * time.Hour)}))
		require.NoError(t, s.RecordJob(ctx, id, domain.JobResult{Identifier: "a@x", Outcome: domain.OutcomeSuccess, FinishedAt: base}))
	}

	runs, err := s.ListRuns(ctx, 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	require.Equal(t, "run-4", runs[0].ID)
	require.Equal(t, "run-2", runs[2].ID)

	deleted, err := s.DeleteRunsBefore(ctx, base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(2), deleted)

	runs, err = s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	_, err = s.GetRun(ctx, "run-0")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestMigrationsAreIdempotentOnDisk(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "ledger.db")

	s, err := sqlite.NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.CreateRun(context.Background(), domain.RunSummary{ID: "r1", Mode: "all", StartedAt: base}))
	require.NoError(t, s.Close())

	s, err = sqlite.NewStore(path)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.ApplyMigrations())

	run, err := s.GetRun(context.Background(), "r1")
	require.NoError(t, err)
	require.Equal(t, "all", run.Mode)
}
