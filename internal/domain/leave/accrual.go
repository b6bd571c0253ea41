package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	AccrualApplied = "applied"
	AccrualSkipped = "skipped"
	AccrualFailed  = "failed"

	SkipPolicyNotFound  = "policy_not_found"
	SkipNoElapsedPeriod = "no_elapsed_period"
)

type AccrualResult struct {
	StaffID    string         `json:"staffId"`
	LeaveType  LeaveType      `json:"leaveType"`
	Status     string         `json:"status"`
	SkipReason string         `json:"skipReason,omitempty"`
	Record     *AccrualRecord `json:"record,omitempty"`
}

type AccrualSummary struct {
	AsOf     time.Time        `json:"asOf"`
	Applied  int              `json:"applied"`
	Skipped  int              `json:"skipped"`
	Failed   int              `json:"failed"`
	Failures []AccrualFailure `json:"failures,omitempty"`
}

type AccrualFailure struct {
	StaffID   string    `json:"staffId"`
	LeaveType LeaveType `json:"leaveType"`
	Error     string    `json:"error"`
}

type accrualPlan struct {
	record     AccrualRecord
	balance    Balance
	movements  []BalanceMovement
	skipReason string
}

// planAccrual computes one accrual run for a (staff, leave type) pair without touching storage.
// last is the most recent history record for the pair, or nil on the first run.
// Without history the balance's LastAccrualDate anchors the run, then its creation date.
func planAccrual(p Policy, bal Balance, t LeaveType, last *AccrualRecord, asOf time.Time, actor Actor) accrualPlan {
	asOf = dateOnly(asOf)
	freq := p.AccrualFrequency
	pm := freq.Months()
	if pm == 0 {
		return accrualPlan{skipReason: SkipNoElapsedPeriod}
	}
	asOfStart := periodStart(asOf, freq)

	var (
		anchorStart time.Time
		anchorYear  int
		full        int
		prorata     = decimal.Zero
		factor      *decimal.Decimal
	)
	var lastRun *time.Time
	switch {
	case last != nil:
		lastRun = &last.AccrualDate
	case bal.LastAccrualDate != nil:
		lastRun = bal.LastAccrualDate
	}

	if lastRun != nil {
		lastDate := dateOnly(*lastRun)
		if asOf.Before(lastDate) {
			return accrualPlan{skipReason: SkipNoElapsedPeriod}
		}
		anchorStart = periodStart(lastDate, freq)
		anchorYear = lastDate.Year()
		full = monthsBetween(anchorStart, asOfStart) / pm
	} else {
		created := dateOnly(bal.CreatedAt)
		if asOf.Before(created) {
			return accrualPlan{skipReason: SkipNoElapsedPeriod}
		}
		anchorStart = periodStart(created, freq)
		anchorYear = created.Year()
		full = monthsBetween(anchorStart, asOfStart) / pm

		// The period the balance was opened in is credited pro rata.
		end := anchorStart.AddDate(0, pm, 0)
		total := decimal.NewFromInt(int64(end.Sub(anchorStart).Hours() / 24))
		remaining := decimal.NewFromInt(int64(end.Sub(created).Hours() / 24))
		f := remaining.Div(total).Round(4)
		if f.LessThan(decimal.NewFromInt(1)) {
			factor = &f
		}
		prorata = p.AccrualRate.Mul(f).Round(2)
	}

	crossed := asOf.Year() > anchorYear
	preCount := 0
	if crossed {
		// Jan 1 is a period start for every frequency, so this divides exactly.
		preCount = monthsBetween(anchorStart, yearStart(asOf.Year()))/pm - 1
		if preCount < 0 {
			preCount = 0
		}
	}
	postCount := full - preCount
	if postCount < 0 {
		postCount = 0
	}

	before := bal.Amount(t)
	current := before
	accrued := decimal.Zero
	expired := decimal.Zero
	cf, expiresAt := bal.CarryForward(t)

	if t.TracksCarryForward() && cf.IsPositive() && expiresAt != nil && !expiresAt.After(asOf) {
		drop := decimal.Min(cf, current)
		current = current.Sub(drop)
		expired = expired.Add(drop)
		cf = decimal.Zero
		expiresAt = nil
	}

	pre := p.AccrualRate.Mul(decimal.NewFromInt(int64(preCount))).Round(2).Add(prorata)
	current = current.Add(pre)
	accrued = accrued.Add(pre)

	if crossed {
		limit := p.carryoverCap()
		if current.GreaterThan(limit) {
			expired = expired.Add(current.Sub(limit))
			current = limit
		}
		if t.TracksCarryForward() {
			cf = current
			expiresAt = nil
			if cf.IsPositive() && p.ExpiresAfterMonths != nil {
				e := yearStart(asOf.Year()).AddDate(0, *p.ExpiresAfterMonths, 0)
				expiresAt = &e
			}
		}
	}

	post := p.AccrualRate.Mul(decimal.NewFromInt(int64(postCount))).Round(2)
	current = current.Add(post)
	accrued = accrued.Add(post)

	if p.MaxDays.IsPositive() {
		ceiling := p.MaxDays.Add(cf)
		if current.GreaterThan(ceiling) {
			trim := decimal.Min(current.Sub(ceiling), accrued)
			current = current.Sub(trim)
			accrued = accrued.Sub(trim)
		}
	}

	elapsed := full > 0 || lastRun == nil
	if !elapsed && expired.IsZero() && !crossed {
		return accrualPlan{skipReason: SkipNoElapsedPeriod}
	}

	label := periodLabel(asOfStart, freq)
	rec := AccrualRecord{
		StaffID:          bal.StaffID,
		LeaveType:        t,
		AccrualDate:      asOf,
		AccrualPeriod:    label,
		DaysAccrued:      accrued,
		DaysBefore:       before,
		DaysAfter:        current,
		ProRataFactor:    factor,
		CarryForwardDays: cf,
		ExpiredDays:      expired,
		ProcessedBy:      actor.label(),
	}

	next := bal
	next.setAmount(t, current)
	next.setCarryForward(t, cf, expiresAt)
	lastDate := asOf
	next.LastAccrualDate = &lastDate
	next.AccrualPeriod = label

	var movements []BalanceMovement
	afterAccrual := before.Add(accrued)
	if accrued.IsPositive() {
		movements = append(movements, BalanceMovement{
			StaffID: bal.StaffID, LeaveType: t, Kind: MovementAccrual,
			Days: accrued, DaysBefore: before, DaysAfter: afterAccrual,
			Reason: label, Actor: actor.label(),
		})
	}
	if expired.IsPositive() {
		movements = append(movements, BalanceMovement{
			StaffID: bal.StaffID, LeaveType: t, Kind: MovementExpiry,
			Days: expired, DaysBefore: afterAccrual, DaysAfter: current,
			Reason: label, Actor: actor.label(),
		})
	}

	return accrualPlan{record: rec, balance: next, movements: movements}
}

func accrualLockKey(staffID string, t LeaveType) string {
	return fmt.Sprintf("leave:accrual:%s:%s", staffID, t)
}

// RunAccrual accrues one leave type for one staff member as of asOf.
// Runs for the same pair are serialised through the Locker.
func (s *Service) RunAccrual(ctx context.Context, actor Actor, staffID string, leaveType LeaveType, asOf time.Time) (AccrualResult, error) {
	result := AccrualResult{StaffID: staffID, LeaveType: leaveType}
	if !leaveType.Valid() {
		return result, ErrInvalidLeaveType
	}

	unlock, err := s.locker().Lock(ctx, accrualLockKey(staffID, leaveType))
	if err != nil {
		return result, fmt.Errorf("acquire accrual lock: %w", err)
	}
	defer unlock()

	var plan accrualPlan
	err = s.Store.WithTx(ctx, func(repo Repository) error {
		policy, err := repo.ActivePolicy(ctx, leaveType)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				plan = accrualPlan{skipReason: SkipPolicyNotFound}
				return nil
			}
			return err
		}
		bal, err := repo.LockBalance(ctx, staffID)
		if err != nil {
			return err
		}

		var last *AccrualRecord
		rec, err := repo.LastAccrual(ctx, staffID, leaveType)
		switch {
		case err == nil:
			last = &rec
		case !errors.Is(err, ErrNotFound):
			return err
		}

		plan = planAccrual(policy, bal, leaveType, last, asOf, actor)
		if plan.skipReason != "" {
			return nil
		}
		if !plan.record.Reconciles() || !plan.balance.NonNegative() {
			return fmt.Errorf("accrual for %s/%s does not reconcile", staffID, leaveType)
		}

		now := s.now()
		plan.record.ID = s.newID()
		plan.record.CreatedAt = now
		plan.balance.UpdatedAt = now
		if err := repo.UpdateBalance(ctx, plan.balance); err != nil {
			return err
		}
		if err := repo.InsertAccrual(ctx, plan.record); err != nil {
			return err
		}
		for _, m := range plan.movements {
			m.ID = s.newID()
			m.CreatedAt = now
			if err := repo.InsertMovement(ctx, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.recordAccrual(AccrualFailed)
		return result, err
	}

	if plan.skipReason != "" {
		result.Status = AccrualSkipped
		result.SkipReason = plan.skipReason
		s.recordAccrual(AccrualSkipped)
		return result, nil
	}

	rec := plan.record
	result.Status = AccrualApplied
	result.Record = &rec
	s.recordAccrual(AccrualApplied)
	s.audit(ctx, AuditEntry{
		Action:   ActionAccrualRun,
		User:     actor.label(),
		UserRole: actor.Role,
		StaffID:  staffID,
		Details: AuditDetails{
			Severity:    SeverityInfo,
			LeaveType:   leaveType,
			Days:        decPtr(rec.DaysAccrued),
			DaysBefore:  decPtr(rec.DaysBefore),
			DaysAfter:   decPtr(rec.DaysAfter),
			ExpiredDays: decPtr(rec.ExpiredDays),
			Period:      rec.AccrualPeriod,
		},
	})
	return result, nil
}

// RunAccruals accrues every balance for every leave type with an active policy.
// Each pair runs independently; one failing pair does not stop the others.
func (s *Service) RunAccruals(ctx context.Context, actor Actor, asOf time.Time) (AccrualSummary, error) {
	summary := AccrualSummary{AsOf: dateOnly(asOf)}

	policies, err := s.Store.ListPolicies(ctx)
	if err != nil {
		return summary, err
	}
	var types []LeaveType
	seen := make(map[LeaveType]bool)
	for _, p := range policies {
		if p.Active && !seen[p.LeaveType] {
			seen[p.LeaveType] = true
			types = append(types, p.LeaveType)
		}
	}
	if len(types) == 0 {
		return summary, nil
	}

	balances, err := s.Store.ListBalances(ctx)
	if err != nil {
		return summary, err
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.accrualConcurrency())
	for _, bal := range balances {
		for _, t := range types {
			staffID, leaveType := bal.StaffID, t
			g.Go(func() error {
				res, err := s.RunAccrual(gctx, actor, staffID, leaveType, asOf)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err != nil:
					slog.Warn("leave accrual failed", "staffId", staffID, "leaveType", leaveType, "err", err)
					summary.Failed++
					summary.Failures = append(summary.Failures, AccrualFailure{StaffID: staffID, LeaveType: leaveType, Error: err.Error()})
				case res.Status == AccrualApplied:
					summary.Applied++
				default:
					summary.Skipped++
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}
	return summary, ctx.Err()
}

// AccrualHistory returns the append-only accrual ledger for a pair, oldest first.
func (s *Service) AccrualHistory(ctx context.Context, staffID string, leaveType LeaveType) ([]AccrualRecord, error) {
	return s.Store.ListAccruals(ctx, staffID, leaveType)
}
