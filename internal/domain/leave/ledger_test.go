package leave

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDebitInsufficientLeavesBalanceUntouched(t *testing.T) {
	bal := Balance{StaffID: "S1", Sick: dec("2")}

	err := bal.Debit(TypeSick, dec("5"))
	var insufficient *InsufficientBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientBalanceError, got %v", err)
	}
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected error to match ErrInsufficientBalance")
	}
	if !insufficient.Available.Equal(dec("2")) || !insufficient.Requested.Equal(dec("5")) {
		t.Fatalf("unexpected error detail: %+v", insufficient)
	}
	if !bal.Sick.Equal(dec("2")) {
		t.Fatalf("expected sick balance unchanged, got %s", bal.Sick)
	}
}

func TestDebitConsumesCarryForwardFirst(t *testing.T) {
	expires := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	bal := Balance{StaffID: "S1", Annual: dec("10"), AnnualCarryForward: dec("4"), AnnualExpiresAt: &expires}

	if err := bal.Debit(TypeAnnual, dec("3")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bal.Annual.Equal(dec("7")) || !bal.AnnualCarryForward.Equal(dec("1")) || bal.AnnualExpiresAt == nil {
		t.Fatalf("unexpected balance after first debit: %s cf %s", bal.Annual, bal.AnnualCarryForward)
	}

	if err := bal.Debit(TypeAnnual, dec("2")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bal.Annual.Equal(dec("5")) || !bal.AnnualCarryForward.IsZero() || bal.AnnualExpiresAt != nil {
		t.Fatalf("expected carry-forward exhausted, got %s cf %s exp %v", bal.Annual, bal.AnnualCarryForward, bal.AnnualExpiresAt)
	}
}

func TestCreditAndDebitRejectBadInput(t *testing.T) {
	bal := Balance{StaffID: "S1"}
	if err := bal.Credit(LeaveType("holiday"), dec("1")); !errors.Is(err, ErrInvalidLeaveType) {
		t.Fatalf("expected ErrInvalidLeaveType, got %v", err)
	}
	if err := bal.Credit(TypeAnnual, dec("-1")); err == nil {
		t.Fatal("expected negative credit to fail")
	}
	if err := bal.Debit(TypeAnnual, dec("-1")); err == nil {
		t.Fatal("expected negative debit to fail")
	}
	if err := bal.Credit(TypeUnpaid, dec("1.5")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bal.Amount(TypeUnpaid).Equal(dec("1.5")) {
		t.Fatalf("expected unpaid 1.5, got %s", bal.Amount(TypeUnpaid))
	}
}

func TestNonNegative(t *testing.T) {
	if !(Balance{Annual: dec("1")}).NonNegative() {
		t.Fatal("expected positive balance to pass")
	}
	if (Balance{Compassionate: dec("-0.5")}).NonNegative() {
		t.Fatal("expected negative balance to fail")
	}
	if (Balance{StudyCarryForward: dec("-1")}).NonNegative() {
		t.Fatal("expected negative carry-forward to fail")
	}
}
