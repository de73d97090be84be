package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/provision/internal/provision/domain"
	"github.com/aussiebroadwan/provision/internal/provision/service"
	"github.com/aussiebroadwan/provision/internal/provision/store"
	"github.com/aussiebroadwan/provision/pkg/slogx"
	"github.com/stretchr/testify/require"
)

// memLedger is an in-memory store.Ledger.
type memLedger struct {
	mu      sync.Mutex
	runs    map[string]*domain.RunDetail
	deleted time.Time
}

func newMemLedger() *memLedger {
	return &memLedger{runs: make(map[string]*domain.RunDetail)}
}

func (l *memLedger) CreateRun(_ context.Context, run domain.RunSummary) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs[run.ID] = &domain.RunDetail{RunSummary: run}
	return nil
}

func (l *memLedger) RecordJob(_ context.Context, runID string, res domain.JobResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.runs[runID]
	if !ok {
		return store.ErrNotFound
	}
	r.Results = append(r.Results, res)
	return nil
}

func (l *memLedger) FinishRun(_ context.Context, runID string, report domain.Report) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.runs[runID]
	if !ok {
		return store.ErrNotFound
	}
	finished := report.FinishedAt
	r.FinishedAt = &finished
	r.Success, r.Error, r.Skipped = report.Success, report.Error, report.Skipped
	return nil
}

func (l *memLedger) GetRun(_ context.Context, runID string) (domain.RunDetail, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.runs[runID]
	if !ok {
		return domain.RunDetail{}, store.ErrNotFound
	}
	return *r, nil
}

func (l *memLedger) ListRuns(_ context.Context, limit int) ([]domain.RunSummary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.RunSummary
	for _, r := range l.runs {
		out = append(out, r.RunSummary)
	}
	return out, nil
}

func (l *memLedger) DeleteRunsBefore(_ context.Context, before time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.deleted = before
	var n int64
	for id, r := range l.runs {
		if r.StartedAt.Before(before) {
			delete(l.runs, id)
			n++
		}
	}
	return n, nil
}

func (l *memLedger) ApplyMigrations() error     { return nil }
func (l *memLedger) Ping(context.Context) error { return nil }
func (l *memLedger) Close() error               { return nil }

func newRunService(e *env, ledger store.Ledger) *service.RunService {
	return &service.RunService{
		Scheduler: *e.scheduler(2),
		Ledger:    ledger,
		Logger:    slogx.Discard(),
	}
}

func TestRunServiceBatchRecordsLedger(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.remote.AddAccount("alice@example.com", "pw-alice@example.com")
	e.seedComplete(t, "bob@example.com")

	ledger := newMemLedger()
	svc := newRunService(e, ledger)

	report, err := svc.RunBatch(context.Background(), []domain.Account{
		account("alice@example.com"),
		account("bob@example.com"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, report.RunID)
	require.Equal(t, 1, report.Success)
	require.Equal(t, 1, report.Skipped)

	detail, err := svc.GetRun(context.Background(), report.RunID)
	require.NoError(t, err)
	require.Equal(t, service.RunModeAll, detail.Mode)
	require.Equal(t, 2, detail.Total)
	require.Len(t, detail.Results, 2)
	require.NotNil(t, detail.FinishedAt)
	require.Equal(t, 1, detail.Success)

	state := svc.State()
	require.False(t, state.Active)
	require.Equal(t, report.RunID, state.RunID)
	require.Equal(t, 2, state.Completed)
	require.NotNil(t, state.Report)
}

func TestRunServiceRejectsConcurrentRuns(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	release := make(chan struct{})
	started := make(chan struct{})
	svc := &service.RunService{
		Scheduler: service.Scheduler{
			Gate:        e.gate,
			Provisioner: &gatedProvisioner{started: started, release: release},
		},
		Logger: slogx.Discard(),
	}

	runID, err := svc.StartBatch(context.Background(), []domain.Account{account("a@x")})
	require.NoError(t, err)
	require.NotEmpty(t, runID)
	<-started

	_, err = svc.StartBatch(context.Background(), []domain.Account{account("b@x")})
	require.ErrorIs(t, err, service.ErrRunInProgress)
	_, err = svc.RunSingle(context.Background(), account("b@x"), "")
	require.ErrorIs(t, err, service.ErrRunInProgress)
	require.True(t, svc.State().Active)

	close(release)
	svc.Wait()
	require.False(t, svc.State().Active)

	_, err = svc.RunSingle(context.Background(), account("b@x"), "IMAP")
	require.NoError(t, err)
}

type gatedProvisioner struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *gatedProvisioner) Provision(ctx context.Context, acct domain.Account, label string) (*service.Run, error) {
	p.once.Do(func() {
		close(p.started)
		<-p.release
	})
	return &service.Run{Identifier: acct.Identifier, Label: label, State: service.StateDone}, nil
}

func TestRunServiceSingle(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.remote.AddAccount("alice@example.com", "pw-alice@example.com")

	svc := newRunService(e, newMemLedger())
	res, err := svc.RunSingle(context.Background(), account("alice@example.com"), "Calendar")
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeSuccess, res.Outcome)
	require.Equal(t, "Calendar", res.Label)

	rec, _ := e.record(t, "alice@example.com")
	require.Contains(t, rec.AppPasswords, "Calendar")

	runs, err := svc.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, service.RunModeSingle, runs[0].Mode)
}

func TestRunServiceWithoutLedger(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	svc := newRunService(e, nil)

	_, err := svc.ListRuns(context.Background(), 10)
	require.ErrorIs(t, err, service.ErrNoLedger)

	report, err := svc.RunBatch(context.Background(), nil)
	require.NoError(t, err)
	require.Zero(t, report.Total)
}

func TestRunServiceGetRunUnknownID(t *testing.T) {
	t.Parallel()
	svc := newRunService(newEnv(t), newMemLedger())

	_, err := svc.GetRun(context.Background(), "not-a-ulid")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestHousekeepingCleanup(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	ledger := newMemLedger()
	require.NoError(t, ledger.CreateRun(context.Background(), domain.RunSummary{ID: "old", StartedAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, ledger.CreateRun(context.Background(), domain.RunSummary{ID: "new", StartedAt: now.Add(-time.Hour)}))

	hk := service.NewHousekeepingService(ledger, slogx.Discard(), 0, 24*time.Hour)
	hk.Now = func() time.Time { return now }
	require.Equal(t, time.Hour, hk.Interval)

	hk.Cleanup(context.Background())
	require.Equal(t, now.Add(-24*time.Hour), ledger.deleted)

	_, err := ledger.GetRun(context.Background(), "old")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = ledger.GetRun(context.Background(), "new")
	require.NoError(t, err)

	hk.Start()
	hk.Stop()
}
