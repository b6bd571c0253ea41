package leave

import (
	"context"

	"github.com/shopspring/decimal"
)

// StatutoryValidator checks a policy against the legal minimum entitlement for its leave type.
type StatutoryValidator interface {
	ValidatePolicy(ctx context.Context, p Policy) error
}

// StatutoryMinimums is the minimum MaxDays per leave type. Types without an entry have no floor.
type StatutoryMinimums map[LeaveType]decimal.Decimal

// DefaultStatutoryMinimums holds the public service minimums applied when no other table is configured.
var DefaultStatutoryMinimums = StatutoryMinimums{
	TypeAnnual:        decimal.NewFromInt(21),
	TypeSick:          decimal.NewFromInt(10),
	TypeMaternity:     decimal.NewFromInt(84),
	TypePaternity:     decimal.NewFromInt(5),
	TypeCompassionate: decimal.NewFromInt(3),
}

func (m StatutoryMinimums) ValidatePolicy(_ context.Context, p Policy) error {
	floor, ok := m[p.LeaveType]
	if !ok {
		return nil
	}
	if p.MaxDays.LessThan(floor) {
		return invalidPolicy("maxDays %s is below the statutory minimum of %s for %s", p.MaxDays, floor, p.LeaveType)
	}
	return nil
}

// Validate checks the structural rules every stored policy must satisfy.
func (p Policy) Validate() error {
	if !p.LeaveType.Valid() {
		return ErrInvalidLeaveType
	}
	if p.AccrualFrequency.Months() == 0 {
		return invalidPolicy("unknown accrual frequency %q", p.AccrualFrequency)
	}
	if p.ApprovalLevels < 1 {
		return invalidPolicy("approvalLevels must be a positive integer")
	}
	if p.MaxDays.IsNegative() || p.AccrualRate.IsNegative() || p.MaxCarryover.IsNegative() {
		return invalidPolicy("day amounts must not be negative")
	}
	if p.ExpiresAfterMonths != nil && *p.ExpiresAfterMonths < 1 {
		return invalidPolicy("expiresAfterMonths must be at least 1 when set")
	}
	return nil
}

// EffectiveApprovalLevels treats zero or negative counts as a single implicit approval.
func (p Policy) EffectiveApprovalLevels() int {
	if p.ApprovalLevels < 1 {
		return 1
	}
	return p.ApprovalLevels
}

// carryoverCap is the amount that may survive a cycle boundary.
func (p Policy) carryoverCap() decimal.Decimal {
	if !p.CarryoverAllowed {
		return decimal.Zero
	}
	return p.MaxCarryover
}
