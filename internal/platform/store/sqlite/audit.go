package sqlite

import (
	"context"
	"strings"

	"hrleave/internal/domain/audit"
)

func auditWhere(filter audit.Filter) (string, []any) {
	var clauses []string
	var args []any
	if filter.Action != "" {
		clauses = append(clauses, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.StaffID != "" {
		clauses = append(clauses, "staff_id = ?")
		args = append(args, filter.StaffID)
	}
	if filter.LeaveRequestID != "" {
		clauses = append(clauses, "leave_request_id = ?")
		args = append(args, filter.LeaveRequestID)
	}
	if !filter.Since.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, formatTime(filter.Since))
	}
	if !filter.Until.IsZero() {
		clauses = append(clauses, "created_at < ?")
		args = append(args, formatTime(filter.Until))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *Store) InsertEvent(ctx context.Context, evt audit.Event) error {
	details := string(evt.Details)
	if details == "" {
		details = "{}"
	}
	_, err := s.db.ExecContext(ctx, `
    INSERT INTO audit_logs (id, action, user, user_role, staff_id, leave_request_id, details, request_id, ip_address, user_agent, created_at)
    VALUES (?,?,?,?,?,?,?,?,?,?,?)
  `, evt.ID, evt.Action, evt.User, evt.UserRole, nullString(evt.StaffID), nullString(evt.LeaveRequestID),
		details, evt.RequestID, evt.IP, evt.UserAgent, formatTime(evt.CreatedAt))
	return err
}

func (s *Store) ListEvents(ctx context.Context, filter audit.Filter, limit, offset int) ([]audit.Event, error) {
	where, args := auditWhere(filter)
	args = append(args, limit, offset)
	rows, err := s.db.QueryContext(ctx, `
    SELECT id, action, user, user_role, COALESCE(staff_id, ''), COALESCE(leave_request_id, ''),
           details, request_id, ip_address, user_agent, created_at
    FROM audit_logs`+where+`
    ORDER BY created_at DESC, id
    LIMIT ? OFFSET ?
  `, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var evt audit.Event
		var details, createdAt string
		if err := rows.Scan(&evt.ID, &evt.Action, &evt.User, &evt.UserRole, &evt.StaffID, &evt.LeaveRequestID,
			&details, &evt.RequestID, &evt.IP, &evt.UserAgent, &createdAt); err != nil {
			return nil, err
		}
		evt.Details = []byte(details)
		if evt.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func (s *Store) CountEvents(ctx context.Context, filter audit.Filter) (int, error) {
	where, args := auditWhere(filter)
	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM audit_logs"+where, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
