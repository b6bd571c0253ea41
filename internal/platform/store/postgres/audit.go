package postgres

import (
	"context"
	"fmt"
	"strings"

	"hrleave/internal/domain/audit"
)

func auditWhere(filter audit.Filter) (string, []any) {
	var clauses []string
	var args []any
	if filter.Action != "" {
		args = append(args, filter.Action)
		clauses = append(clauses, fmt.Sprintf("action = $%d", len(args)))
	}
	if filter.StaffID != "" {
		args = append(args, filter.StaffID)
		clauses = append(clauses, fmt.Sprintf("staff_id = $%d", len(args)))
	}
	if filter.LeaveRequestID != "" {
		args = append(args, filter.LeaveRequestID)
		clauses = append(clauses, fmt.Sprintf("leave_request_id = $%d", len(args)))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !filter.Until.IsZero() {
		args = append(args, filter.Until)
		clauses = append(clauses, fmt.Sprintf("created_at < $%d", len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *Store) InsertEvent(ctx context.Context, evt audit.Event) error {
	details := []byte(evt.Details)
	if len(details) == 0 {
		details = []byte("{}")
	}
	_, err := s.pool.Exec(ctx, `
    INSERT INTO audit_logs (id, action, "user", user_role, staff_id, leave_request_id, details, request_id, ip_address, user_agent, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
  `, evt.ID, evt.Action, evt.User, evt.UserRole, nullString(evt.StaffID), nullString(evt.LeaveRequestID),
		details, evt.RequestID, evt.IP, evt.UserAgent, evt.CreatedAt)
	return err
}

func (s *Store) ListEvents(ctx context.Context, filter audit.Filter, limit, offset int) ([]audit.Event, error) {
	where, args := auditWhere(filter)
	pos := len(args) + 1
	args = append(args, limit, offset)
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
    SELECT id::text, action, "user", user_role, COALESCE(staff_id, ''), COALESCE(leave_request_id, ''),
           details, request_id, ip_address, user_agent, created_at
    FROM audit_logs`+where+`
    ORDER BY created_at DESC, id
    LIMIT $%d OFFSET $%d
  `, pos, pos+1), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var evt audit.Event
		var details []byte
		if err := rows.Scan(&evt.ID, &evt.Action, &evt.User, &evt.UserRole, &evt.StaffID, &evt.LeaveRequestID,
			&details, &evt.RequestID, &evt.IP, &evt.UserAgent, &evt.CreatedAt); err != nil {
			return nil, err
		}
		evt.Details = details
		out = append(out, evt)
	}
	return out, rows.Err()
}

func (s *Store) CountEvents(ctx context.Context, filter audit.Filter) (int, error) {
	where, args := auditWhere(filter)
	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(1) FROM audit_logs"+where, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
