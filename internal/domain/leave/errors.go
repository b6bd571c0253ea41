package leave

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidRange        = errors.New("end date is before start date")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrPolicyNotFound      = errors.New("no active policy for leave type")
	ErrInvalidLeaveType    = errors.New("invalid leave type")
	ErrInvalidPolicy       = errors.New("invalid policy")
	ErrForbidden           = errors.New("forbidden")
	ErrConflict            = errors.New("concurrent modification")
	ErrInvalidInput        = errors.New("invalid input")
)

type InsufficientBalanceError struct {
	StaffID   string
	LeaveType LeaveType
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance for staff %s: available %s, requested %s",
		e.LeaveType, e.StaffID, e.Available.String(), e.Requested.String())
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

func invalidTransition(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidTransition, fmt.Sprintf(format, args...))
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func invalidPolicy(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidPolicy, fmt.Sprintf(format, args...))
}
