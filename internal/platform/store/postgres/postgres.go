// Package postgres persists the leave workflow in PostgreSQL through pgx.
// Writers lock rows with SELECT ... FOR UPDATE and guard updates with a version check.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrleave/internal/domain/leave"
	"hrleave/internal/platform/querier"
)

type Store struct {
	repo
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{repo: repo{db: pool}, pool: pool}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(leave.Repository) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&repo{db: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			slog.Warn("postgres rollback failed", "err", rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type repo struct {
	db querier.Querier
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return leave.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func requireRow(tag pgconn.CommandTag, missing error) error {
	if tag.RowsAffected() == 0 {
		return missing
	}
	return nil
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
