// Package sqlite persists the leave workflow in a local SQLite database.
// Day amounts are stored as decimal TEXT and timestamps as RFC3339 TEXT.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"hrleave/internal/domain/leave"
	"hrleave/internal/platform/db"
)

type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	repo
	db *sql.DB
	mu sync.Mutex
}

// Open opens and migrates the database at path. Use ":memory:" for tests.
func Open(ctx context.Context, path string) (*Store, error) {
	conn, err := db.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateSQLite(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	return New(conn), nil
}

func New(conn *sql.DB) *Store {
	return &Store{repo: repo{db: conn}, db: conn}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx serialises writers with a store-wide mutex; SQLite has no row locks.
func (s *Store) WithTx(ctx context.Context, fn func(leave.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&repo{db: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Warn("sqlite rollback failed", "err", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type repo struct {
	db executor
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return leave.ErrNotFound
	}
	return err
}

// timeLayout is fixed width so TEXT ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, raw)
}

func parseTimePtr(raw sql.NullString) (*time.Time, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	t, err := parseTime(raw.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
