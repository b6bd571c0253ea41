package leave

import (
	"context"
	"time"
)

// Repository is the persistence surface used inside and outside transactions.
// Lock* methods take a row lock when the backend supports one.
type Repository interface {
	ActivePolicy(ctx context.Context, leaveType LeaveType) (Policy, error)
	GetPolicy(ctx context.Context, id string) (Policy, error)
	ListPolicies(ctx context.Context) ([]Policy, error)
	InsertPolicy(ctx context.Context, p Policy) error
	UpdatePolicy(ctx context.Context, p Policy) error
	DeactivatePolicies(ctx context.Context, leaveType LeaveType, exceptID string, now time.Time) error

	GetBalance(ctx context.Context, staffID string) (Balance, error)
	LockBalance(ctx context.Context, staffID string) (Balance, error)
	ListBalances(ctx context.Context) ([]Balance, error)
	InsertBalance(ctx context.Context, b Balance) error
	// UpdateBalance writes b if the stored version still equals b.Version, else ErrConflict.
	UpdateBalance(ctx context.Context, b Balance) error

	GetRequest(ctx context.Context, id string) (Request, error)
	LockRequest(ctx context.Context, id string) (Request, error)
	ListRequests(ctx context.Context, filter RequestFilter) (RequestListResult, error)
	InsertRequest(ctx context.Context, r Request) error
	// UpdateRequest writes r if the stored version still equals r.Version, else ErrInvalidTransition.
	UpdateRequest(ctx context.Context, r Request) error

	LastAccrual(ctx context.Context, staffID string, leaveType LeaveType) (AccrualRecord, error)
	ListAccruals(ctx context.Context, staffID string, leaveType LeaveType) ([]AccrualRecord, error)
	InsertAccrual(ctx context.Context, rec AccrualRecord) error

	InsertMovement(ctx context.Context, m BalanceMovement) error
	ListMovements(ctx context.Context, staffID string, leaveType LeaveType) ([]BalanceMovement, error)
}

type Store interface {
	Repository
	// WithTx runs fn in one transaction, committing when fn returns nil.
	WithTx(ctx context.Context, fn func(Repository) error) error
}

// Locker serialises work on a key across processes.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// AuditSink receives one entry per state change. Failures never roll back the change.
type AuditSink interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// Notifier is told about request transitions after they commit.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Recorder observes workflow outcomes for metrics.
type Recorder interface {
	Decision(outcome string)
	Accrual(status string)
}
