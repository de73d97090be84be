package service

import (
	"context"
	"sync"
	"time"

	"github.com/aussiebroadwan/provision/internal/provision/domain"
	"github.com/aussiebroadwan/provision/pkg/slogx"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// DefaultConcurrency is the worker pool size when none is configured.
const DefaultConcurrency = 3

// AccountProvisioner is the per-account job the scheduler runs.
type AccountProvisioner interface {
	Provision(ctx context.Context, account domain.Account, label string) (*Run, error)
}

// Scheduler runs one provisioning job per account on a bounded worker pool.
type Scheduler struct {
	Gate        *Gate
	Provisioner AccountProvisioner

	Concurrency int
	// SubmitInterval paces job admission; zero admits as fast as workers free up.
	SubmitInterval time.Duration
	Label          string

	// OnProgress is called after every finished job. Calls are serialized.
	OnProgress func(domain.Progress)
	Now        func() time.Time
}

// Run provisions accounts and always returns a complete report: every input
// line, duplicates and unadmitted accounts included, has exactly one result.
//
// Cancelling ctx stops admission. Jobs already running finish their current
// step and release their session.
func (s *Scheduler) Run(ctx context.Context, accounts []domain.Account) domain.Report {
	logger := slogx.FromContext(ctx)
	startedAt := s.now()

	concurrency := s.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	logger.Info("batch started", "accounts", len(accounts), "concurrency", concurrency)

	c := &collector{
		results:    make([]domain.JobResult, len(accounts)),
		onProgress: s.OnProgress,
	}

	var limiter *rate.Limiter
	if s.SubmitInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(s.SubmitInterval), 1)
	}

	var g errgroup.Group
	g.SetLimit(concurrency)

	seen := make(map[string]struct{}, len(accounts))
	for i, acct := range accounts {
		if _, dup := seen[acct.Identifier]; dup {
			c.put(i, s.result(acct, domain.OutcomeSkipped, "duplicate entry", ""))
			continue
		}
		seen[acct.Identifier] = struct{}{}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				c.put(i, s.cancelled(acct))
				continue
			}
		}
		if ctx.Err() != nil {
			c.put(i, s.cancelled(acct))
			continue
		}

		g.Go(func() error {
			// Admission may have blocked on a free worker.
			if ctx.Err() != nil {
				c.put(i, s.cancelled(acct))
				return nil
			}
			c.put(i, s.runJob(ctx, acct))
			return nil
		})
	}
	_ = g.Wait()

	report := domain.NewReport(c.results, startedAt, s.now())
	logger.Info("batch finished",
		"total", report.Total,
		"success", report.Success,
		"error", report.Error,
		"skipped", report.Skipped,
		"elapsed", report.Elapsed,
	)
	return report
}

func (s *Scheduler) runJob(ctx context.Context, acct domain.Account) domain.JobResult {
	started := s.now()
	// Provision tags its own logger with the account.
	gateCtx := slogx.WithAccount(ctx, acct.Identifier)

	status := s.Gate.Classify(gateCtx, acct.Identifier)
	if status == domain.StatusComplete {
		slogx.FromContext(gateCtx).Info("already complete, skipping")
		res := s.result(acct, domain.OutcomeSkipped, "already complete", status)
		res.Duration = s.now().Sub(started)
		return res
	}

	run, err := s.Provisioner.Provision(ctx, acct, s.label())
	outcome, msg := domain.OutcomeSuccess, "provisioned"
	if run != nil {
		msg = run.Message()
	}
	if err != nil {
		outcome, msg = domain.OutcomeError, err.Error()
	}

	res := s.result(acct, outcome, msg, status)
	res.Duration = s.now().Sub(started)
	return res
}

func (s *Scheduler) result(acct domain.Account, outcome domain.Outcome, msg string, status domain.Status) domain.JobResult {
	return domain.JobResult{
		Identifier: acct.Identifier,
		Label:      s.label(),
		Outcome:    outcome,
		Message:    msg,
		Status:     status,
		FinishedAt: s.now(),
	}
}

func (s *Scheduler) cancelled(acct domain.Account) domain.JobResult {
	return s.result(acct, domain.OutcomeError, domain.ErrCancelled.Error()+": not started", "")
}

func (s *Scheduler) label() string {
	if s.Label == "" {
		return domain.DefaultAppPasswordLabel
	}
	return s.Label
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// collector stores results by submission slot so duplicate identifiers keep
// their own line.
type collector struct {
	mu         sync.Mutex
	results    []domain.JobResult
	completed  int
	onProgress func(domain.Progress)
}

func (c *collector) put(i int, res domain.JobResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.results[i] = res
	c.completed++
	if c.onProgress != nil {
		c.onProgress(domain.Progress{
			Completed: c.completed,
			Total:     len(c.results),
			Result:    res,
		})
	}
}
