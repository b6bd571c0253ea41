package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"hrleave/internal/domain/leave"
)

const policyColumns = `id, leave_type, max_days, accrual_rate, accrual_frequency, carryover_allowed, max_carryover,
  expires_after_months, requires_approval, approval_levels, active, created_at, updated_at`

func scanPolicy(row interface{ Scan(...any) error }) (leave.Policy, error) {
	var (
		p                    leave.Policy
		expires              sql.NullInt64
		createdAt, updatedAt string
	)
	if err := row.Scan(&p.ID, &p.LeaveType, &p.MaxDays, &p.AccrualRate, &p.AccrualFrequency, &p.CarryoverAllowed,
		&p.MaxCarryover, &expires, &p.RequiresApproval, &p.ApprovalLevels, &p.Active, &createdAt, &updatedAt); err != nil {
		return leave.Policy{}, err
	}
	if expires.Valid {
		months := int(expires.Int64)
		p.ExpiresAfterMonths = &months
	}
	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return leave.Policy{}, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return leave.Policy{}, err
	}
	return p, nil
}

func (r *repo) ActivePolicy(ctx context.Context, leaveType leave.LeaveType) (leave.Policy, error) {
	p, err := scanPolicy(r.db.QueryRowContext(ctx, `
    SELECT `+policyColumns+`
    FROM leave_policies
    WHERE leave_type = ? AND active = 1
    ORDER BY updated_at DESC
    LIMIT 1
  `, leaveType))
	return p, notFound(err)
}

func (r *repo) GetPolicy(ctx context.Context, id string) (leave.Policy, error) {
	p, err := scanPolicy(r.db.QueryRowContext(ctx, `SELECT `+policyColumns+` FROM leave_policies WHERE id = ?`, id))
	return p, notFound(err)
}

func (r *repo) ListPolicies(ctx context.Context) ([]leave.Policy, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+policyColumns+` FROM leave_policies ORDER BY leave_type, updated_at DESC`)
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

func expiresArg(p leave.Policy) any {
	if p.ExpiresAfterMonths == nil {
		return nil
	}
	return *p.ExpiresAfterMonths
}

func (r *repo) InsertPolicy(ctx context.Context, p leave.Policy) error {
	_, err := r.db.ExecContext(ctx, `
    INSERT INTO leave_policies (`+policyColumns+`)
    VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
  `, p.ID, p.LeaveType, p.MaxDays, p.AccrualRate, p.AccrualFrequency, boolInt(p.CarryoverAllowed), p.MaxCarryover,
		expiresArg(p), boolInt(p.RequiresApproval), p.ApprovalLevels, boolInt(p.Active), formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	return err
}

func (r *repo) UpdatePolicy(ctx context.Context, p leave.Policy) error {
	res, err := r.db.ExecContext(ctx, `
    UPDATE leave_policies
    SET max_days = ?, accrual_rate = ?, accrual_frequency = ?, carryover_allowed = ?, max_carryover = ?,
        expires_after_months = ?, requires_approval = ?, approval_levels = ?, active = ?, updated_at = ?
    WHERE id = ?
  `, p.MaxDays, p.AccrualRate, p.AccrualFrequency, boolInt(p.CarryoverAllowed), p.MaxCarryover,
		expiresArg(p), boolInt(p.RequiresApproval), p.ApprovalLevels, boolInt(p.Active), formatTime(p.UpdatedAt), p.ID)
	if err != nil {
		return err
	}
	return requireRow(res, leave.ErrNotFound)
}

func (r *repo) DeactivatePolicies(ctx context.Context, leaveType leave.LeaveType, exceptID string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
    UPDATE leave_policies SET active = 0, updated_at = ?
    WHERE leave_type = ? AND active = 1 AND id <> ?
  `, formatTime(now), leaveType, exceptID)
	return err
}

const balanceColumns = `staff_id, annual, sick, unpaid, special_service, training, study, maternity, paternity, compassionate,
  annual_carry_forward, sick_carry_forward, special_service_carry_forward, training_carry_forward, study_carry_forward,
  annual_expires_at, sick_expires_at, special_service_expires_at, training_expires_at, study_expires_at,
  last_accrual_date, accrual_period, version, created_at, updated_at`

func scanBalance(row interface{ Scan(...any) error }) (leave.Balance, error) {
	var (
		b                                            leave.Balance
		annualExp, sickExp, ssExp, trainExp, studyExp sql.NullString
		lastAccrual                                  sql.NullString
		createdAt, updatedAt                         string
	)
	if err := row.Scan(&b.StaffID, &b.Annual, &b.Sick, &b.Unpaid, &b.SpecialService, &b.Training, &b.Study,
		&b.Maternity, &b.Paternity, &b.Compassionate,
		&b.AnnualCarryForward, &b.SickCarryForward, &b.SpecialServiceCarryForward, &b.TrainingCarryForward, &b.StudyCarryForward,
		&annualExp, &sickExp, &ssExp, &trainExp, &studyExp,
		&lastAccrual, &b.AccrualPeriod, &b.Version, &createdAt, &updatedAt); err != nil {
		return leave.Balance{}, err
	}
	var err error
	for _, f := range []struct {
		raw sql.NullString
		dst **time.Time
	}{
		{annualExp, &b.AnnualExpiresAt},
		{sickExp, &b.SickExpiresAt},
		{ssExp, &b.SpecialServiceExpiresAt},
		{trainExp, &b.TrainingExpiresAt},
		{studyExp, &b.StudyExpiresAt},
		{lastAccrual, &b.LastAccrualDate},
	} {
		if *f.dst, err = parseTimePtr(f.raw); err != nil {
			return leave.Balance{}, err
		}
	}
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return leave.Balance{}, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return leave.Balance{}, err
	}
	return b, nil
}

func balanceArgs(b leave.Balance) []any {
	return []any{
		b.Annual, b.Sick, b.Unpaid, b.SpecialService, b.Training, b.Study, b.Maternity, b.Paternity, b.Compassionate,
		b.AnnualCarryForward, b.SickCarryForward, b.SpecialServiceCarryForward, b.TrainingCarryForward, b.StudyCarryForward,
		formatTimePtr(b.AnnualExpiresAt), formatTimePtr(b.SickExpiresAt), formatTimePtr(b.SpecialServiceExpiresAt),
		formatTimePtr(b.TrainingExpiresAt), formatTimePtr(b.StudyExpiresAt),
		formatTimePtr(b.LastAccrualDate), b.AccrualPeriod,
	}
}

func (r *repo) GetBalance(ctx context.Context, staffID string) (leave.Balance, error) {
	b, err := scanBalance(r.db.QueryRowContext(ctx, `SELECT `+balanceColumns+` FROM leave_balances WHERE staff_id = ?`, staffID))
	return b, notFound(err)
}

func (r *repo) LockBalance(ctx context.Context, staffID string) (leave.Balance, error) {
	return r.GetBalance(ctx, staffID)
}

func (r *repo) ListBalances(ctx context.Context) ([]leave.Balance, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+balanceColumns+` FROM leave_balances ORDER BY staff_id`)
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
	args = append(args, b.Version, formatTime(b.CreatedAt), formatTime(b.UpdatedAt))
	_, err := r.db.ExecContext(ctx, `
    INSERT INTO leave_balances (`+balanceColumns+`)
    VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
  `, args...)
	if err != nil && strings.Contains(err.Error(), "UNIQUE") {
		return fmt.Errorf("%w: balance already exists for %s", leave.ErrConflict, b.StaffID)
	}
	return err
}

func (r *repo) UpdateBalance(ctx context.Context, b leave.Balance) error {
	args := balanceArgs(b)
	args = append(args, formatTime(b.UpdatedAt), b.StaffID, b.Version)
	res, err := r.db.ExecContext(ctx, `
    UPDATE leave_balances SET
      annual = ?, sick = ?, unpaid = ?, special_service = ?, training = ?, study = ?, maternity = ?, paternity = ?, compassionate = ?,
      annual_carry_forward = ?, sick_carry_forward = ?, special_service_carry_forward = ?, training_carry_forward = ?, study_carry_forward = ?,
      annual_expires_at = ?, sick_expires_at = ?, special_service_expires_at = ?, training_expires_at = ?, study_expires_at = ?,
      last_accrual_date = ?, accrual_period = ?,
      updated_at = ?, version = version + 1
    WHERE staff_id = ? AND version = ?
  `, args...)
	if err != nil {
		return err
	}
	return requireRow(res, leave.ErrConflict)
}

const requestColumns = `id, staff_id, staff_name, leave_type, start_date, end_date, days, reason, status,
  approval_levels, approved_by, approval_date, policy_fallback, version, created_at, updated_at`

func scanRequest(row interface{ Scan(...any) error }) (leave.Request, error) {
	var (
		req                  leave.Request
		start, end           string
		levels               sql.NullString
		approvedBy           sql.NullString
		approvalDate         sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&req.ID, &req.StaffID, &req.StaffName, &req.LeaveType, &start, &end, &req.Days, &req.Reason,
		&req.Status, &levels, &approvedBy, &approvalDate, &req.PolicyFallback, &req.Version, &createdAt, &updatedAt); err != nil {
		return leave.Request{}, err
	}
	if levels.Valid && levels.String != "" && levels.String != "null" {
		if err := json.Unmarshal([]byte(levels.String), &req.ApprovalLevels); err != nil {
			return leave.Request{}, fmt.Errorf("decode approval levels: %w", err)
		}
	}
	req.ApprovedBy = approvedBy.String
	var err error
	if req.StartDate, err = time.Parse("2006-01-02", start); err != nil {
		return leave.Request{}, err
	}
	if req.EndDate, err = time.Parse("2006-01-02", end); err != nil {
		return leave.Request{}, err
	}
	if req.ApprovalDate, err = parseTimePtr(approvalDate); err != nil {
		return leave.Request{}, err
	}
	if req.CreatedAt, err = parseTime(createdAt); err != nil {
		return leave.Request{}, err
	}
	if req.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return leave.Request{}, err
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

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func (r *repo) GetRequest(ctx context.Context, id string) (leave.Request, error) {
	req, err := scanRequest(r.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM leave_requests WHERE id = ?`, id))
	return req, notFound(err)
}

func (r *repo) LockRequest(ctx context.Context, id string) (leave.Request, error) {
	return r.GetRequest(ctx, id)
}

func (r *repo) ListRequests(ctx context.Context, filter leave.RequestFilter) (leave.RequestListResult, error) {
	where := []string{"1=1"}
	var args []any
	if filter.StaffID != "" {
		where = append(where, "staff_id = ?")
		args = append(args, filter.StaffID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.LeaveType != "" {
		where = append(where, "leave_type = ?")
		args = append(args, filter.LeaveType)
	}
	clause := strings.Join(where, " AND ")

	var result leave.RequestListResult
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM leave_requests WHERE `+clause, args...).Scan(&result.Total); err != nil {
		return result, err
	}

	rows, err := r.db.QueryContext(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests
    WHERE `+clause+`
    ORDER BY created_at DESC
    LIMIT ? OFFSET ?
  `, append(args, filter.Limit, filter.Offset)...)
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
	_, err = r.db.ExecContext(ctx, `
    INSERT INTO leave_requests (`+requestColumns+`)
    VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
  `, req.ID, req.StaffID, req.StaffName, req.LeaveType, req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02"),
		req.Days, req.Reason, req.Status, levels, nullString(req.ApprovedBy), formatTimePtr(req.ApprovalDate),
		boolInt(req.PolicyFallback), req.Version, formatTime(req.CreatedAt), formatTime(req.UpdatedAt))
	return err
}

func (r *repo) UpdateRequest(ctx context.Context, req leave.Request) error {
	levels, err := levelsArg(req.ApprovalLevels)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
    UPDATE leave_requests
    SET status = ?, approval_levels = ?, approved_by = ?, approval_date = ?, updated_at = ?, version = version + 1
    WHERE id = ? AND version = ?
  `, req.Status, levels, nullString(req.ApprovedBy), formatTimePtr(req.ApprovalDate), formatTime(req.UpdatedAt), req.ID, req.Version)
	if err != nil {
		return err
	}
	return requireRow(res, leave.ErrInvalidTransition)
}

const accrualColumns = `id, staff_id, leave_type, accrual_date, accrual_period, days_accrued, days_before, days_after,
  pro_rata_factor, carry_forward_days, expired_days, processed_by, created_at`

func scanAccrual(row interface{ Scan(...any) error }) (leave.AccrualRecord, error) {
	var (
		rec                    leave.AccrualRecord
		accrualDate, createdAt string
		factor                 decimal.NullDecimal
	)
	if err := row.Scan(&rec.ID, &rec.StaffID, &rec.LeaveType, &accrualDate, &rec.AccrualPeriod, &rec.DaysAccrued,
		&rec.DaysBefore, &rec.DaysAfter, &factor, &rec.CarryForwardDays, &rec.ExpiredDays, &rec.ProcessedBy, &createdAt); err != nil {
		return leave.AccrualRecord{}, err
	}
	if factor.Valid {
		f := factor.Decimal
		rec.ProRataFactor = &f
	}
	var err error
	if rec.AccrualDate, err = parseTime(accrualDate); err != nil {
		return leave.AccrualRecord{}, err
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return leave.AccrualRecord{}, err
	}
	return rec, nil
}

func (r *repo) LastAccrual(ctx context.Context, staffID string, leaveType leave.LeaveType) (leave.AccrualRecord, error) {
	rec, err := scanAccrual(r.db.QueryRowContext(ctx, `
    SELECT `+accrualColumns+`
    FROM leave_accrual_history
    WHERE staff_id = ? AND leave_type = ?
    ORDER BY accrual_date DESC, created_at DESC
    LIMIT 1
  `, staffID, leaveType))
	return rec, notFound(err)
}

func (r *repo) ListAccruals(ctx context.Context, staffID string, leaveType leave.LeaveType) ([]leave.AccrualRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
    SELECT `+accrualColumns+`
    FROM leave_accrual_history
    WHERE staff_id = ? AND (? = '' OR leave_type = ?)
    ORDER BY accrual_date, created_at
  `, staffID, leaveType, leaveType)
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
	_, err := r.db.ExecContext(ctx, `
    INSERT INTO leave_accrual_history (`+accrualColumns+`)
    VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
  `, rec.ID, rec.StaffID, rec.LeaveType, formatTime(rec.AccrualDate), rec.AccrualPeriod, rec.DaysAccrued, rec.DaysBefore,
		rec.DaysAfter, factor, rec.CarryForwardDays, rec.ExpiredDays, rec.ProcessedBy, formatTime(rec.CreatedAt))
	return err
}

const movementColumns = `id, staff_id, leave_type, kind, days, days_before, days_after, leave_request_id, reason, actor, created_at`

func (r *repo) InsertMovement(ctx context.Context, m leave.BalanceMovement) error {
	_, err := r.db.ExecContext(ctx, `
    INSERT INTO leave_balance_movements (`+movementColumns+`)
    VALUES (?,?,?,?,?,?,?,?,?,?,?)
  `, m.ID, m.StaffID, m.LeaveType, m.Kind, m.Days, m.DaysBefore, m.DaysAfter, nullString(m.LeaveRequestID), m.Reason,
		m.Actor, formatTime(m.CreatedAt))
	return err
}

func (r *repo) ListMovements(ctx context.Context, staffID string, leaveType leave.LeaveType) ([]leave.BalanceMovement, error) {
	rows, err := r.db.QueryContext(ctx, `
    SELECT `+movementColumns+`
    FROM leave_balance_movements
    WHERE staff_id = ? AND (? = '' OR leave_type = ?)
    ORDER BY created_at, rowid
  `, staffID, leaveType, leaveType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leave.BalanceMovement
	for rows.Next() {
		var (
			m         leave.BalanceMovement
			requestID sql.NullString
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.StaffID, &m.LeaveType, &m.Kind, &m.Days, &m.DaysBefore, &m.DaysAfter, &requestID,
			&m.Reason, &m.Actor, &createdAt); err != nil {
			return nil, err
		}
		m.LeaveRequestID = requestID.String
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func requireRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}
