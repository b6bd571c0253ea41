package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"hrleave/internal/domain/leave"
)

const policyColumns = `id, leave_type, max_days, accrual_rate, accrual_frequency, carryover_allowed, max_carryover,
  expires_after_months, requires_approval, approval_levels, active, created_at, updated_at`

func scanPolicy(row pgx.Row) (leave.Policy, error) {
	var p leave.Policy
	err := row.Scan(&p.ID, &p.LeaveType, &p.MaxDays, &p.AccrualRate, &p.AccrualFrequency, &p.CarryoverAllowed,
		&p.MaxCarryover, &p.ExpiresAfterMonths, &p.RequiresApproval, &p.ApprovalLevels, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repo) ActivePolicy(ctx context.Context, leaveType leave.LeaveType) (leave.Policy, error) {
	p, err := scanPolicy(r.db.QueryRow(ctx, `
    SELECT `+policyColumns+`
    FROM leave_policies
    WHERE leave_type = $1 AND active
    ORDER BY updated_at DESC
    LIMIT 1
  `, leaveType))
	return p, notFound(err)
}

func (r *repo) GetPolicy(ctx context.Context, id string) (leave.Policy, error) {
	p, err := scanPolicy(r.db.QueryRow(ctx, `SELECT `+policyColumns+` FROM leave_policies WHERE id = $1`, id))
	return p, notFound(err)
}

func (r *repo) ListPolicies(ctx context.Context) ([]leave.Policy, error) {
	rows, err := r.db.Query(ctx, `SELECT `+policyColumns+` FROM leave_policies ORDER BY leave_type, updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leave.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repo) InsertPolicy(ctx context.Context, p leave.Policy) error {
	_, err := r.db.Exec(ctx, `
    INSERT INTO leave_policies (`+policyColumns+`)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
  `, p.ID, p.LeaveType, p.MaxDays, p.AccrualRate, p.AccrualFrequency, p.CarryoverAllowed, p.MaxCarryover,
		p.ExpiresAfterMonths, p.RequiresApproval, p.ApprovalLevels, p.Active, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *repo) UpdatePolicy(ctx context.Context, p leave.Policy) error {
	tag, err := r.db.Exec(ctx, `
    UPDATE leave_policies
    SET max_days = $1, accrual_rate = $2, accrual_frequency = $3, carryover_allowed = $4, max_carryover = $5,
        expires_after_months = $6, requires_approval = $7, approval_levels = $8, active = $9, updated_at = $10
    WHERE id = $11
  `, p.MaxDays, p.AccrualRate, p.AccrualFrequency, p.CarryoverAllowed, p.MaxCarryover,
		p.ExpiresAfterMonths, p.RequiresApproval, p.ApprovalLevels, p.Active, p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	return requireRow(tag, leave.ErrNotFound)
}

func (r *repo) DeactivatePolicies(ctx context.Context, leaveType leave.LeaveType, exceptID string, now time.Time) error {
	_, err := r.db.Exec(ctx, `
    UPDATE leave_policies SET active = FALSE, updated_at = $1
    WHERE leave_type = $2 AND active AND id <> $3
  `, now, leaveType, exceptID)
	return err
}

const balanceColumns = `staff_id, annual, sick, unpaid, special_service, training, study, maternity, paternity, compassionate,
  annual_carry_forward, sick_carry_forward, special_service_carry_forward, training_carry_forward, study_carry_forward,
  annual_expires_at, sick_expires_at, special_service_expires_at, training_expires_at, study_expires_at,
  last_accrual_date, accrual_period, version, created_at, updated_at`

func scanBalance(row pgx.Row) (leave.Balance, error) {
	var b leave.Balance
	err := row.Scan(&b.StaffID, &b.Annual, &b.Sick, &b.Unpaid, &b.SpecialService, &b.Training, &b.Study,
		&b.Maternity, &b.Paternity, &b.Compassionate,
		&b.AnnualCarryForward, &b.SickCarryForward, &b.SpecialServiceCarryForward, &b.TrainingCarryForward, &b.StudyCarryForward,
		&b.AnnualExpiresAt, &b.SickExpiresAt, &b.SpecialServiceExpiresAt, &b.TrainingExpiresAt, &b.StudyExpiresAt,
		&b.LastAccrualDate, &b.AccrualPeriod, &b.Version, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func balanceArgs(b leave.Balance) []any {
	return []any{
		b.Annual, b.Sick, b.Unpaid, b.SpecialService, b.Training, b.Study, b.Maternity, b.Paternity, b.Compassionate,
		b.AnnualCarryForward, b.SickCarryForward, b.SpecialServiceCarryForward, b.TrainingCarryForward, b.StudyCarryForward,
		b.AnnualExpiresAt, b.SickExpiresAt, b.SpecialServiceExpiresAt, b.TrainingExpiresAt, b.StudyExpiresAt,
		b.LastAccrualDate, b.AccrualPeriod,
	}
}

func (r *repo) GetBalance(ctx context.Context, staffID string) (leave.Balance, error) {
	b, err := scanBalance(r.db.QueryRow(ctx, `SELECT `+balanceColumns+` FROM leave_balances WHERE staff_id = $1`, staffID))
	return b, notFound(err)
}

func (r *repo) LockBalance(ctx context.Context, staffID string) (leave.Balance, error) {
	b, err := scanBalance(r.db.QueryRow(ctx, `SELECT `+balanceColumns+` FROM leave_balances WHERE staff_id = $1 FOR UPDATE`, staffID))
	return b, notFound(err)
}

func (r *repo) ListBalances(ctx context.Context) ([]leave.Balance, error) {
	rows, err := r.db.Query(ctx, `SELECT `+balanceColumns+` FROM leave_balances ORDER BY staff_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leave.Balance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repo) InsertBalance(ctx context.Context, b leave.Balance) error {
	args := append([]any{b.StaffID}, balanceArgs(b)...)
	args = append(args, b.Version, b.CreatedAt, b.UpdatedAt)
	_, err := r.db.Exec(ctx, `
    INSERT INTO leave_balances (`+balanceColumns+`)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)
  `, args...)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: balance already exists for %s", leave.ErrConflict, b.StaffID)
	}
	return err
}

func (r *repo) UpdateBalance(ctx context.Context, b leave.Balance) error {
	args := balanceArgs(b)
	args = append(args, b.UpdatedAt, b.StaffID, b.Version)
	tag, err := r.db.Exec(ctx, `
    UPDATE leave_balances SET
      annual = $1, sick = $2, unpaid = $3, special_service = $4, training = $5, study = $6,
      maternity = $7, paternity = $8, compassionate = $9,
      annual_carry_forward = $10, sick_carry_forward = $11, special_service_carry_forward = $12,
      training_carry_forward = $13, study_carry_forward = $14,
      annual_expires_at = $15, sick_expires_at = $16, special_service_expires_at = $17,
      training_expires_at = $18, study_expires_at = $19,
      last_accrual_date = $20, accrual_period = $21,
      updated_at = $22, version = version + 1
    WHERE staff_id = $23 AND version = $24
  `, args...)
	if err != nil {
		return err
	}
	return requireRow(tag, leave.ErrConflict)
}

const requestColumns = `id, staff_id, staff_name, leave_type, start_date, end_date, days, reason, status,
  approval_levels, COALESCE(approved_by, ''), approval_date, policy_fallback, version, created_at, updated_at`

const requestInsertColumns = `id, staff_id, staff_name, leave_type, start_date, end_date, days, reason, status,
  approval_levels, approved_by, approval_date, policy_fallback, version, created_at, updated_at`

func scanRequest(row pgx.Row) (leave.Request, error) {
	var (
		req    leave.Request
		levels []byte
	)
	if err := row.Scan(&req.ID, &req.StaffID, &req.StaffName, &req.LeaveType, &req.StartDate, &req.EndDate, &req.Days,
		&req.Reason, &req.Status, &levels, &req.ApprovedBy, &req.ApprovalDate, &req.PolicyFallback, &req.Version,
		&req.CreatedAt, &req.UpdatedAt); err != nil {
		return leave.Request{}, err
	}
	if len(levels) > 0 && string(levels) != "null" {
		if err := json.Unmarshal(levels, &req.ApprovalLevels); err != nil {
			return leave.Request{}, fmt.Errorf("decode approval levels: %w", err)
		}
	}
	return req, nil
}

func levelsArg(levels []leave.ApprovalLevel) (any, error) {
	if len(levels) == 0 {
		return nil, nil
	}
	payload, err := json.Marshal(levels)
	if err != nil {
		return nil, err
	}
	return string(payload), nil
}

func (r *repo) GetRequest(ctx context.Context, id string) (leave.Request, error) {
	req, err := scanRequest(r.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM leave_requests WHERE id = $1`, id))
	return req, notFound(err)
}

func (r *repo) LockRequest(ctx context.Context, id string) (leave.Request, error) {
	req, err := scanRequest(r.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM leave_requests WHERE id = $1 FOR UPDATE`, id))
	return req, notFound(err)
}

func (r *repo) ListRequests(ctx context.Context, filter leave.RequestFilter) (leave.RequestListResult, error) {
	where := []string{"1=1"}
	var args []any
	if filter.StaffID != "" {
		args = append(args, filter.StaffID)
		where = append(where, fmt.Sprintf("staff_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.LeaveType != "" {
		args = append(args, filter.LeaveType)
		where = append(where, fmt.Sprintf("leave_type = $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var result leave.RequestListResult
	if err := r.db.QueryRow(ctx, `SELECT COUNT(1) FROM leave_requests WHERE `+clause, args...).Scan(&result.Total); err != nil {
		return result, err
	}

	limitPos := len(args) + 1
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
    SELECT `+requestColumns+`
    FROM leave_requests
    WHERE `+clause+`
    ORDER BY created_at DESC
    LIMIT $%d OFFSET $%d
  `, limitPos, limitPos+1), append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return result, err
	}
	defer rows.Close()
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return result, err
		}
		result.Items = append(result.Items, req)
	}
	return result, rows.Err()
}

func (r *repo) InsertRequest(ctx context.Context, req leave.Request) error {
	levels, err := levelsArg(req.ApprovalLevels)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
    INSERT INTO leave_requests (`+requestInsertColumns+`)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
  `, req.ID, req.StaffID, req.StaffName, req.LeaveType, req.StartDate, req.EndDate, req.Days, req.Reason, req.Status,
		levels, nullString(req.ApprovedBy), req.ApprovalDate, req.PolicyFallback, req.Version, req.CreatedAt, req.UpdatedAt)
	return err
}

func (r *repo) UpdateRequest(ctx context.Context, req leave.Request) error {
	levels, err := levelsArg(req.ApprovalLevels)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `
    UPDATE leave_requests
    SET status = $1, approval_levels = $2, approved_by = $3, approval_date = $4, updated_at = $5, version = version + 1
    WHERE id = $6 AND version = $7
  `, req.Status, levels, nullString(req.ApprovedBy), req.ApprovalDate, req.UpdatedAt, req.ID, req.Version)
	if err != nil {
		return err
	}
	return requireRow(tag, leave.ErrInvalidTransition)
}

const accrualColumns = `id, staff_id, leave_type, accrual_date, accrual_period, days_accrued, days_before, days_after,
  pro_rata_factor, carry_forward_days, expired_days, processed_by, created_at`

func scanAccrual(row pgx.Row) (leave.AccrualRecord, error) {
	var (
		rec    leave.AccrualRecord
		factor decimal.NullDecimal
	)
	if err := row.Scan(&rec.ID, &rec.StaffID, &rec.LeaveType, &rec.AccrualDate, &rec.AccrualPeriod, &rec.DaysAccrued,
		&rec.DaysBefore, &rec.DaysAfter, &factor, &rec.CarryForwardDays, &rec.ExpiredDays, &rec.ProcessedBy, &rec.CreatedAt); err != nil {
		return leave.AccrualRecord{}, err
	}
	if factor.Valid {
		f := factor.Decimal
		rec.ProRataFactor = &f
	}
	return rec, nil
}

func (r *repo) LastAccrual(ctx context.Context, staffID string, leaveType leave.LeaveType) (leave.AccrualRecord, error) {
	rec, err := scanAccrual(r.db.QueryRow(ctx, `
    SELECT `+accrualColumns+`
    FROM leave_accrual_history
    WHERE staff_id = $1 AND leave_type = $2
    ORDER BY accrual_date DESC, created_at DESC
    LIMIT 1
  `, staffID, leaveType))
	return rec, notFound(err)
}

func (r *repo) ListAccruals(ctx context.Context, staffID string, leaveType leave.LeaveType) ([]leave.AccrualRecord, error) {
	rows, err := r.db.Query(ctx, `
    SELECT `+accrualColumns+`
    FROM leave_accrual_history
    WHERE staff_id = $1 AND ($2 = '' OR leave_type = $2)
    ORDER BY accrual_date, created_at
  `, staffID, string(leaveType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leave.AccrualRecord
	for rows.Next() {
		rec, err := scanAccrual(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *repo) InsertAccrual(ctx context.Context, rec leave.AccrualRecord) error {
	var factor any
	if rec.ProRataFactor != nil {
		factor = *rec.ProRataFactor
	}
	_, err := r.db.Exec(ctx, `
    INSERT INTO leave_accrual_history (`+accrualColumns+`)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
  `, rec.ID, rec.StaffID, rec.LeaveType, rec.AccrualDate, rec.AccrualPeriod, rec.DaysAccrued, rec.DaysBefore,
		rec.DaysAfter, factor, rec.CarryForwardDays, rec.ExpiredDays, rec.ProcessedBy, rec.CreatedAt)
	return err
}

const movementColumns = `id, staff_id, leave_type, kind, days, days_before, days_after, leave_request_id, reason, actor, created_at`

func (r *repo) InsertMovement(ctx context.Context, m leave.BalanceMovement) error {
	_, err := r.db.Exec(ctx, `
    INSERT INTO leave_balance_movements (`+movementColumns+`)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
  `, m.ID, m.StaffID, m.LeaveType, m.Kind, m.Days, m.DaysBefore, m.DaysAfter, nullString(m.LeaveRequestID), m.Reason,
		m.Actor, m.CreatedAt)
	return err
}

func (r *repo) ListMovements(ctx context.Context, staffID string, leaveType leave.LeaveType) ([]leave.BalanceMovement, error) {
	rows, err := r.db.Query(ctx, `
    SELECT id, staff_id, leave_type, kind, days, days_before, days_after, COALESCE(leave_request_id::text, ''),
           reason, actor, created_at
    FROM leave_balance_movements
    WHERE staff_id = $1 AND ($2 = '' OR leave_type = $2)
    ORDER BY created_at, id
  `, staffID, string(leaveType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leave.BalanceMovement
	for rows.Next() {
		var m leave.BalanceMovement
		if err := rows.Scan(&m.ID, &m.StaffID, &m.LeaveType, &m.Kind, &m.Days, &m.DaysBefore, &m.DaysAfter,
			&m.LeaveRequestID, &m.Reason, &m.Actor, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
