package history

import (
	"context"
	"fmt"
	"time"
)

// Outcome values stored for finished jobs.
const (
	OutcomeDone   = "done"
	OutcomeFailed = "failed"
)

// Run is one finished job as recorded in the ledger.
type Run struct {
	ID           int64
	JobID        string
	Name         string
	Outcome      string
	FailedStep   string
	FailureKind  string
	ErrorMessage string
	Steps        int
	SubmittedAt  time.Time
	FinishedAt   time.Time
	Duration     time.Duration
}

// Record inserts a finished job and returns its row id.
func (s *Store) Record(ctx context.Context, run Run) (int64, error) {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	if run.SubmittedAt.IsZero() {
		run.SubmittedAt = run.FinishedAt
	}
	if run.Duration <= 0 {
		run.Duration = run.FinishedAt.Sub(run.SubmittedAt)
	}

	var id int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `INSERT INTO job_runs
			(job_id, name, outcome, failed_step, failure_kind, error_message, steps, submitted_at, finished_at, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.JobID, run.Name, run.Outcome, run.FailedStep, run.FailureKind, run.ErrorMessage, run.Steps,
			run.SubmittedAt.UTC().Format(time.RFC3339Nano),
			run.FinishedAt.UTC().Format(time.RFC3339Nano),
			run.Duration.Milliseconds(),
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("record job run: %w", err)
	}
	return id, nil
}

// List returns the most recent runs, newest first. A non-positive limit returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, job_id, name, outcome, failed_step, failure_kind, error_message, steps,
		submitted_at, finished_at, duration_ms
		FROM job_runs ORDER BY finished_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list job runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run                 Run
			submitted, finished string
			durationMS          int64
		)
		if err := rows.Scan(&run.ID, &run.JobID, &run.Name, &run.Outcome, &run.FailedStep, &run.FailureKind,
			&run.ErrorMessage, &run.Steps, &submitted, &finished, &durationMS); err != nil {
			return nil, fmt.Errorf("scan job run: %w", err)
		}
		run.SubmittedAt = parseTime(submitted)
		run.FinishedAt = parseTime(finished)
		run.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job runs: %w", err)
	}
	return runs, nil
}

// Prune deletes runs that finished before cutoff and reports how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, "DELETE FROM job_runs WHERE finished_at < ?",
			cutoff.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune job runs: %w", err)
	}
	return removed, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
