package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Outcome is the terminal result of one provisioning job.
type Outcome string

const (
	OutcomeSkipped Outcome = "skipped"
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// JobResult is a single account's folded outcome.
type JobResult struct {
	Identifier string        `json:"identifier"`
	Label      string        `json:"label"`
	Outcome    Outcome       `json:"outcome"`
	Message    string        `json:"message"`
	Status     Status        `json:"status"` // classification before the job ran
	Duration   time.Duration `json:"duration"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Report aggregates a batch. Success+Error+Skipped always equals Total.
type Report struct {
	RunID      string        `json:"run_id,omitempty"`
	Total      int           `json:"total"`
	Success    int           `json:"success"`
	Error      int           `json:"error"`
	Skipped    int           `json:"skipped"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Elapsed    time.Duration `json:"elapsed"`
	Results    []JobResult   `json:"results"`
}

// NewReport folds results into counts. Results are ordered by identifier so
// the report is stable regardless of completion order.
func NewReport(results []JobResult, startedAt, finishedAt time.Time) Report {
	sorted := slices.Clone(results)
	slices.SortStableFunc(sorted, func(a, b JobResult) int {
		return strings.Compare(a.Identifier, b.Identifier)
	})

	r := Report{
		Total:      len(sorted),
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Elapsed:    finishedAt.Sub(startedAt),
		Results:    sorted,
	}
	for _, res := range sorted {
		switch res.Outcome {
		case OutcomeSuccess:
			r.Success++
		case OutcomeSkipped:
			r.Skipped++
		default:
			r.Error++
		}
	}
	return r
}

// Summary is a one-line description of the report.
func (r Report) Summary() string {
	return fmt.Sprintf("%d accounts: %d success, %d error, %d skipped in %s",
		r.Total, r.Success, r.Error, r.Skipped, r.Elapsed.Round(time.Millisecond))
}

// Lines returns one human-readable line per account.
func (r Report) Lines() []string {
	out := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		out = append(out, fmt.Sprintf("%s [%s] %s", res.Identifier, res.Outcome, res.Message))
	}
	return out
}

// RunSummary is a ledger row for a batch run without per-account results.
type RunSummary struct {
	ID         string     `json:"id"`
	Mode       string     `json:"mode"` // "all" or "single"
	Total      int        `json:"total"`
	Success    int        `json:"success"`
	Error      int        `json:"error"`
	Skipped    int        `json:"skipped"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Progress is emitted after every finished job.
type Progress struct {
	Completed int       `json:"completed"`
	Total     int       `json:"total"`
	Result    JobResult `json:"result"`
}

func (p Progress) String() string {
	return fmt.Sprintf("%d/%d %s: %s", p.Completed, p.Total, p.Result.Identifier, p.Result.Outcome)
}

// RunDetail is a ledger run with its per-account results.
type RunDetail struct {
	RunSummary
	Results []JobResult `json:"results"`
}
