package postgres

import (
	"context"
	"time"

	"hrleave/internal/domain/notifications"
)

func (s *Store) CreateNotification(ctx context.Context, n notifications.Notification) error {
	_, err := s.pool.Exec(ctx, `
    INSERT INTO notifications (id, recipient, type, title, body, leave_request_id, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
  `, n.ID, n.Recipient, n.Type, n.Title, n.Body, nullString(n.LeaveRequestID), n.CreatedAt)
	return err
}

func (s *Store) ListNotifications(ctx context.Context, recipients []string, limit, offset int) ([]notifications.Notification, error) {
	rows, err := s.pool.Query(ctx, `
    SELECT id::text, recipient, type, title, body, COALESCE(leave_request_id, ''), read_at, created_at
    FROM notifications
    WHERE recipient = ANY($1)
    ORDER BY created_at DESC, id
    LIMIT $2 OFFSET $3
  `, recipients, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []notifications.Notification
	for rows.Next() {
		var n notifications.Notification
		if err := rows.Scan(&n.ID, &n.Recipient, &n.Type, &n.Title, &n.Body, &n.LeaveRequestID, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) CountNotifications(ctx context.Context, recipients []string) (int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(1) FROM notifications WHERE recipient = ANY($1)", recipients).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) MarkRead(ctx context.Context, recipients []string, notificationID string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
    UPDATE notifications SET read_at = COALESCE(read_at, $1)
    WHERE id = $2 AND recipient = ANY($3)
  `, at, notificationID, recipients)
	if err != nil {
		return err
	}
	return requireRow(tag, notifications.ErrNotFound)
}
