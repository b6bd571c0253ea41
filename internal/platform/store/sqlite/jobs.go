package sqlite

import (
	"context"
	"time"
)

func (s *Store) StartRun(ctx context.Context, id, jobType string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
    INSERT INTO job_runs (id, job_type, status, started_at)
    VALUES (?,?,?,?)
  `, id, jobType, "running", formatTime(at))
	return err
}

func (s *Store) FinishRun(ctx context.Context, id, status string, details []byte, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
    UPDATE job_runs SET status = ?, details_json = ?, completed_at = ?
    WHERE id = ?
  `, status, string(details), formatTime(at), id)
	return err
}
