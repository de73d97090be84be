package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/provision/internal/provision/domain"
	"github.com/aussiebroadwan/provision/internal/provision/store"
)

// DefaultListLimit caps ListRuns when no limit is given.
const DefaultListLimit = 20

func (s *Store) CreateRun(ctx context.Context, run domain.RunSummary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, mode, total, started_at)
		VALUES (?, ?, ?, ?)`,
		run.ID, run.Mode, run.Total, toMillis(run.StartedAt),
	)
	return err
}

func (s *Store) RecordJob(ctx context.Context, runID string, res domain.JobResult) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO job_results (run_id, seq, identifier, label, outcome, message, status, duration_ms, finished_at)
		SELECT r.id,
		       COALESCE((SELECT MAX(seq) FROM job_results WHERE run_id = r.id), 0) + 1,
		       ?, ?, ?, ?, ?, ?, ?
		FROM runs r
		WHERE r.id = ?`,
		res.Identifier,
		res.Label,
		string(res.Outcome),
		res.Message,
		string(res.Status),
		res.Duration.Milliseconds(),
		toMillis(res.FinishedAt),
		runID,
	)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (s *Store) FinishRun(ctx context.Context, runID string, report domain.Report) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET success = ?, error = ?, skipped = ?, finished_at = ?
		WHERE id = ?`,
		report.Success, report.Error, report.Skipped, toMillis(report.FinishedAt), runID,
	)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (s *Store) GetRun(ctx context.Context, runID string) (domain.RunDetail, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, mode, total, success, error, skipped, started_at, finished_at
		FROM runs
		WHERE id = ?`, runID)

	summary, err := scanRun(row)
	if err != nil {
		return domain.RunDetail{}, mapNotFound(err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT identifier, label, outcome, message, status, duration_ms, finished_at
		FROM job_results
		WHERE run_id = ?
		ORDER BY seq`, runID)
	if err != nil {
		return domain.RunDetail{}, err
	}
	defer rows.Close()

	detail := domain.RunDetail{RunSummary: summary, Results: []domain.JobResult{}}
	for rows.Next() {
		var (
			res        domain.JobResult
			outcome    string
			status     string
			durationMS int64
			finishedAt int64
		)
		if err := rows.Scan(&res.Identifier, &res.Label, &outcome, &res.Message, &status, &durationMS, &finishedAt); err != nil {
			return domain.RunDetail{}, err
		}
		res.Outcome = domain.Outcome(outcome)
		res.Status = domain.Status(status)
		res.Duration = time.Duration(durationMS) * time.Millisecond
		res.FinishedAt = fromMillis(finishedAt)
		detail.Results = append(detail.Results, res)
	}
	return detail, rows.Err()
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mode, total, success, error, skipped, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.RunSummary{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// DeleteRunsBefore removes runs that started before the cutoff, with their
// job results.
func (s *Store) DeleteRunsBefore(ctx context.Context, before time.Time) (int64, error) {
	var deleted int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		cutoff := toMillis(before)
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM job_results
			WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)`, cutoff); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff)
		if err != nil {
			return err
		}
		deleted, err = result.RowsAffected()
		return err
	})
	return deleted, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (domain.RunSummary, error) {
	var (
		run        domain.RunSummary
		startedAt  int64
		finishedAt sql.NullInt64
	)
	if err := row.Scan(&run.ID, &run.Mode, &run.Total, &run.Success, &run.Error, &run.Skipped, &startedAt, &finishedAt); err != nil {
		return domain.RunSummary{}, err
	}
	run.StartedAt = fromMillis(startedAt)
	run.FinishedAt = mapNullTimePtr(finishedAt)
	return run, nil
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
