package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"hrleave/internal/domain/notifications"
)

func inClause(column string, values []string) (string, []any) {
	marks := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		marks[i] = "?"
		args[i] = v
	}
	return column + " IN (" + strings.Join(marks, ",") + ")", args
}

func (s *Store) CreateNotification(ctx context.Context, n notifications.Notification) error {
	_, err := s.db.ExecContext(ctx, `
    INSERT INTO notifications (id, recipient, type, title, body, leave_request_id, created_at)
    VALUES (?,?,?,?,?,?,?)
  `, n.ID, n.Recipient, n.Type, n.Title, n.Body, nullString(n.LeaveRequestID), formatTime(n.CreatedAt))
	return err
}

func (s *Store) ListNotifications(ctx context.Context, recipients []string, limit, offset int) ([]notifications.Notification, error) {
	if len(recipients) == 0 {
		return nil, nil
	}
	cond, args := inClause("recipient", recipients)
	args = append(args, limit, offset)
	rows, err := s.db.QueryContext(ctx, `
    SELECT id, recipient, type, title, body, COALESCE(leave_request_id, ''), read_at, created_at
    FROM notifications
    WHERE `+cond+`
    ORDER BY created_at DESC, id
    LIMIT ? OFFSET ?
  `, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []notifications.Notification
	for rows.Next() {
		var n notifications.Notification
		var readAt sql.NullString
		var createdAt string
		if err := rows.Scan(&n.ID, &n.Recipient, &n.Type, &n.Title, &n.Body, &n.LeaveRequestID, &readAt, &createdAt); err != nil {
			return nil, err
		}
		if n.ReadAt, err = parseTimePtr(readAt); err != nil {
			return nil, err
		}
		if n.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) CountNotifications(ctx context.Context, recipients []string) (int, error) {
	if len(recipients) == 0 {
		return 0, nil
	}
	cond, args := inClause("recipient", recipients)
	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM notifications WHERE "+cond, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) MarkRead(ctx context.Context, recipients []string, notificationID string, at time.Time) error {
	if len(recipients) == 0 {
		return notifications.ErrNotFound
	}
	cond, args := inClause("recipient", recipients)
	args = append([]any{formatTime(at), notificationID}, args...)
	res, err := s.db.ExecContext(ctx, `
    UPDATE notifications SET read_at = COALESCE(read_at, ?)
    WHERE id = ? AND `+cond, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notifications.ErrNotFound
	}
	return nil
}
