package postgres

import (
	"context"
	"time"
)

func (s *Store) StartRun(ctx context.Context, id, jobType string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
    INSERT INTO job_runs (id, job_type, status, started_at)
    VALUES ($1,$2,$3,$4)
  `, id, jobType, "running", at)
	return err
}

func (s *Store) FinishRun(ctx context.Context, id, status string, details []byte, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
    UPDATE job_runs SET status = $1, details_json = $2, completed_at = $3
    WHERE id = $4
  `, status, details, at, id)
	return err
}
