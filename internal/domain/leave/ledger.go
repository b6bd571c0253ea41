package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

func (b *Balance) amountRef(t LeaveType) *decimal.Decimal {
	switch t {
	case TypeAnnual:
		return &b.Annual
	case TypeSick:
		return &b.Sick
	case TypeUnpaid:
		return &b.Unpaid
	case TypeSpecialService:
		return &b.SpecialService
	case TypeTraining:
		return &b.Training
	case TypeStudy:
		return &b.Study
	case TypeMaternity:
		return &b.Maternity
	case TypePaternity:
		return &b.Paternity
	case TypeCompassionate:
		return &b.Compassionate
	default:
		return nil
	}
}

func (b *Balance) carryRefs(t LeaveType) (*decimal.Decimal, **time.Time) {
	switch t {
	case TypeAnnual:
		return &b.AnnualCarryForward, &b.AnnualExpiresAt
	case TypeSick:
		return &b.SickCarryForward, &b.SickExpiresAt
	case TypeSpecialService:
		return &b.SpecialServiceCarryForward, &b.SpecialServiceExpiresAt
	case TypeTraining:
		return &b.TrainingCarryForward, &b.TrainingExpiresAt
	case TypeStudy:
		return &b.StudyCarryForward, &b.StudyExpiresAt
	default:
		return nil, nil
	}
}

// Amount returns the current balance for a leave type.
func (b Balance) Amount(t LeaveType) decimal.Decimal {
	if ref := b.amountRef(t); ref != nil {
		return *ref
	}
	return decimal.Zero
}

// CarryForward returns the carried portion and its expiry. Types that do not track carry-forward return zero.
func (b Balance) CarryForward(t LeaveType) (decimal.Decimal, *time.Time) {
	amount, expires := b.carryRefs(t)
	if amount == nil {
		return decimal.Zero, nil
	}
	return *amount, *expires
}

func (b *Balance) setAmount(t LeaveType, v decimal.Decimal) {
	if ref := b.amountRef(t); ref != nil {
		*ref = v
	}
}

func (b *Balance) setCarryForward(t LeaveType, v decimal.Decimal, expires *time.Time) {
	amount, exp := b.carryRefs(t)
	if amount == nil {
		return
	}
	*amount = v
	*exp = expires
}

// Debit removes days from a leave type. It fails without mutating b when the result would be negative.
func (b *Balance) Debit(t LeaveType, days decimal.Decimal) error {
	if !t.Valid() {
		return ErrInvalidLeaveType
	}
	current := b.Amount(t)
	if days.IsNegative() {
		return ErrInvalidTransition
	}
	if current.LessThan(days) {
		return &InsufficientBalanceError{StaffID: b.StaffID, LeaveType: t, Available: current, Requested: days}
	}
	b.setAmount(t, current.Sub(days))
	// Usage consumes the carried portion first.
	if cf, exp := b.CarryForward(t); cf.IsPositive() {
		remaining := cf.Sub(days)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		if remaining.IsZero() {
			exp = nil
		}
		b.setCarryForward(t, remaining, exp)
	}
	return nil
}

// Credit adds days to a leave type. Credits are uncapped; ceilings apply at accrual time only.
func (b *Balance) Credit(t LeaveType, days decimal.Decimal) error {
	if !t.Valid() {
		return ErrInvalidLeaveType
	}
	if days.IsNegative() {
		return ErrInvalidTransition
	}
	b.setAmount(t, b.Amount(t).Add(days))
	return nil
}

// NonNegative reports whether every balance field is at or above zero.
func (b Balance) NonNegative() bool {
	for _, t := range LeaveTypes {
		if b.Amount(t).IsNegative() {
			return false
		}
		if cf, _ := b.CarryForward(t); cf.IsNegative() {
			return false
		}
	}
	return true
}

func newMovement(b Balance, t LeaveType, kind MovementKind, days, before decimal.Decimal, actor Actor, requestID, reason string, now time.Time) BalanceMovement {
	return BalanceMovement{
		StaffID:        b.StaffID,
		LeaveType:      t,
		Kind:           kind,
		Days:           days,
		DaysBefore:     before,
		DaysAfter:      b.Amount(t),
		LeaveRequestID: requestID,
		Reason:         reason,
		Actor:          actor.label(),
		CreatedAt:      now,
	}
}
