package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/provision/internal/provision/domain"
	"github.com/aussiebroadwan/provision/internal/provision/store"
	"github.com/aussiebroadwan/provision/pkg/idx"
	"github.com/aussiebroadwan/provision/pkg/slogx"
)

const (
	RunModeAll    = "all"
	RunModeSingle = "single"
)

var (
	ErrRunInProgress = errors.New("a run is already in progress")
	ErrNoLedger      = errors.New("run history is not configured")
)

// RunState is the live view of the current or most recent run.
type RunState struct {
	RunID     string            `json:"run_id,omitempty"`
	Mode      string            `json:"mode,omitempty"`
	Active    bool              `json:"active"`
	Completed int               `json:"completed"`
	Total     int               `json:"total"`
	Last      *domain.JobResult `json:"last,omitempty"`
	Report    *domain.Report    `json:"report,omitempty"`
}

// RunService owns batch execution for the CLI and the front end. Only one
// run executes at a time. Runs are recorded in the ledger when one is set.
type RunService struct {
	Scheduler Scheduler
	Ledger    store.Ledger
	Logger    *slog.Logger

	mu     sync.Mutex
	active bool
	state  RunState
	wg     sync.WaitGroup
}

// RunBatch provisions accounts synchronously.
func (s *RunService) RunBatch(ctx context.Context, accounts []domain.Account) (domain.Report, error) {
	runID, err := s.begin(RunModeAll, len(accounts))
	if err != nil {
		return domain.Report{}, err
	}
	return s.execute(ctx, runID, RunModeAll, accounts), nil
}

// StartBatch provisions accounts in the background and returns the run ID.
// ctx must outlive the request that started the run.
func (s *RunService) StartBatch(ctx context.Context, accounts []domain.Account) (string, error) {
	runID, err := s.begin(RunModeAll, len(accounts))
	if err != nil {
		return "", err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(ctx, runID, RunModeAll, accounts)
	}()
	return runID, nil
}

// RunSingle provisions one account synchronously with the given label.
func (s *RunService) RunSingle(ctx context.Context, account domain.Account, label string) (domain.JobResult, error) {
	runID, err := s.begin(RunModeSingle, 1)
	if err != nil {
		return domain.JobResult{}, err
	}

	sched := s.Scheduler
	if label != "" {
		sched.Label = label
	}
	report := s.executeWith(ctx, &sched, runID, RunModeSingle, []domain.Account{account})
	if len(report.Results) != 1 {
		return domain.JobResult{}, fmt.Errorf("run %s produced %d results", runID, len(report.Results))
	}
	return report.Results[0], nil
}

// State returns a snapshot of the current or last run.
func (s *RunService) State() RunState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.state
	if out.Last != nil {
		last := *out.Last
		out.Last = &last
	}
	return out
}

// Wait blocks until background runs have finished.
func (s *RunService) Wait() { s.wg.Wait() }

func (s *RunService) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if s.Ledger == nil {
		return nil, ErrNoLedger
	}
	return s.Ledger.ListRuns(ctx, limit)
}

func (s *RunService) GetRun(ctx context.Context, runID string) (domain.RunDetail, error) {
	if s.Ledger == nil {
		return domain.RunDetail{}, ErrNoLedger
	}
	if _, err := idx.Parse(runID); err != nil {
		return domain.RunDetail{}, store.ErrNotFound
	}
	return s.Ledger.GetRun(ctx, runID)
}

func (s *RunService) begin(mode string, total int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return "", ErrRunInProgress
	}
	s.active = true

	runID := idx.New().String()
	s.state = RunState{RunID: runID, Mode: mode, Active: true, Total: total}
	return runID, nil
}

func (s *RunService) execute(ctx context.Context, runID, mode string, accounts []domain.Account) domain.Report {
	sched := s.Scheduler
	return s.executeWith(ctx, &sched, runID, mode, accounts)
}

func (s *RunService) executeWith(ctx context.Context, sched *Scheduler, runID, mode string, accounts []domain.Account) domain.Report {
	if s.Logger != nil {
		ctx = slogx.WithContext(ctx, s.Logger)
	}
	ctx = slogx.WithRunID(ctx, runID)
	logger := slogx.FromContext(ctx)

	// Ledger writes must land even when the run is being cancelled.
	ledgerCtx := context.WithoutCancel(ctx)
	startedAt := time.Now()
	if sched.Now != nil {
		startedAt = sched.Now()
	}

	if s.Ledger != nil {
		err := s.Ledger.CreateRun(ledgerCtx, domain.RunSummary{
			ID:        runID,
			Mode:      mode,
			Total:     len(accounts),
			StartedAt: startedAt,
		})
		if err != nil {
			logger.Error("failed to record run start", "error", err)
		}
	}

	onProgress := sched.OnProgress
	sched.OnProgress = func(p domain.Progress) {
		s.mu.Lock()
		res := p.Result
		s.state.Completed = p.Completed
		s.state.Last = &res
		s.mu.Unlock()

		if s.Ledger != nil {
			if err := s.Ledger.RecordJob(ledgerCtx, runID, p.Result); err != nil {
				logger.Error("failed to record job result", "account", p.Result.Identifier, "error", err)
			}
		}
		logger.Info("progress", "completed", p.Completed, "total", p.Total,
			"account", p.Result.Identifier, "outcome", p.Result.Outcome)

		if onProgress != nil {
			onProgress(p)
		}
	}

	report := sched.Run(ctx, accounts)
	report.RunID = runID

	if s.Ledger != nil {
		if err := s.Ledger.FinishRun(ledgerCtx, runID, report); err != nil {
			logger.Error("failed to record run finish", "error", err)
		}
	}

	s.mu.Lock()
	s.active = false
	s.state.Active = false
	s.state.Report = &report
	s.mu.Unlock()

	return report
}
