package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Service struct {
	Store     Store
	Resolver  LevelRoleResolver
	Statutory StatutoryValidator
	Audit     AuditSink
	Notify    Notifier
	Locker    Locker
	Metrics   Recorder

	// StrictPolicy turns a missing active policy into ErrPolicyNotFound instead of a single-level fallback.
	StrictPolicy       bool
	AccrualConcurrency int
	Now                func() time.Time
}

func NewService(store Store) *Service {
	return &Service{
		Store:              store,
		Resolver:           DefaultRoleResolver{},
		Statutory:          DefaultStatutoryMinimums,
		AccrualConcurrency: 4,
	}
}

type CreateRequestInput struct {
	StaffID   string
	StaffName string
	LeaveType LeaveType
	StartDate time.Time
	EndDate   time.Time
	Reason    string
}

// CreateRequest validates and stores a new pending request. The day count is always
// derived from the dates.
func (s *Service) CreateRequest(ctx context.Context, actor Actor, in CreateRequestInput) (Request, error) {
	if !in.LeaveType.Valid() {
		return Request{}, ErrInvalidLeaveType
	}
	days, err := CalculateDays(in.StartDate, in.EndDate)
	if err != nil {
		return Request{}, err
	}
	staffID := strings.TrimSpace(in.StaffID)
	if staffID == "" {
		staffID = actor.StaffID
	}
	if staffID == "" {
		return Request{}, ErrForbidden
	}
	if staffID != actor.StaffID && actor.Role != RoleHR {
		return Request{}, ErrForbidden
	}
	staffName := strings.TrimSpace(in.StaffName)
	if staffName == "" && staffID == actor.StaffID {
		staffName = actor.Name
	}

	now := s.now()
	req := Request{
		ID:        s.newID(),
		StaffID:   staffID,
		StaffName: staffName,
		LeaveType: in.LeaveType,
		StartDate: dateOnly(in.StartDate),
		EndDate:   dateOnly(in.EndDate),
		Days:      days,
		Reason:    strings.TrimSpace(in.Reason),
		Status:    StatusPending,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.Store.WithTx(ctx, func(repo Repository) error {
		policy, err := repo.ActivePolicy(ctx, in.LeaveType)
		switch {
		case err == nil:
			req.ApprovalLevels = BuildLevels(&policy, s.resolver(), in.LeaveType, staffID)
		case errors.Is(err, ErrNotFound):
			if s.StrictPolicy {
				return fmt.Errorf("%w: %s", ErrPolicyNotFound, in.LeaveType)
			}
			req.PolicyFallback = true
		default:
			return err
		}
		return repo.InsertRequest(ctx, req)
	})
	if err != nil {
		return Request{}, err
	}

	if req.PolicyFallback {
		slog.Warn("leave policy missing, using single-level approval", "leaveType", req.LeaveType, "requestId", req.ID)
		s.audit(ctx, AuditEntry{
			Action:         ActionPolicyFallback,
			User:           actor.label(),
			UserRole:       actor.Role,
			StaffID:        req.StaffID,
			LeaveRequestID: req.ID,
			Details: AuditDetails{
				Severity:  SeverityWarning,
				LeaveType: req.LeaveType,
				Reason:    "no active policy; request routed to single-level approval",
			},
		})
	}
	s.audit(ctx, AuditEntry{
		Action:         ActionRequestCreate,
		User:           actor.label(),
		UserRole:       actor.Role,
		StaffID:        req.StaffID,
		LeaveRequestID: req.ID,
		Details: AuditDetails{
			Severity:  SeverityInfo,
			LeaveType: req.LeaveType,
			Days:      decPtr(decimal.NewFromInt(int64(req.Days))),
			ToStatus:  req.Status,
		},
	})
	next := Notification{Kind: NotifySubmitted, Status: req.Status}
	if len(req.ApprovalLevels) > 0 {
		next.Level = 1
		next.NextRole = req.ApprovalLevels[0].ApproverRole
	}
	s.notify(ctx, req, next)
	return req, nil
}

// Decide records an approver's outcome for one level. A final approval debits the
// balance in the same transaction; if the debit fails nothing is written.
func (s *Service) Decide(ctx context.Context, actor Actor, requestID string, level int, outcome Outcome) (Request, error) {
	var (
		req Request
		tr  Transition
	)
	err := s.Store.WithTx(ctx, func(repo Repository) error {
		current, err := repo.LockRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if current.StaffID == actor.StaffID && actor.StaffID != "" {
			return fmt.Errorf("%w: approvers cannot decide their own requests", ErrForbidden)
		}
		working := current.Clone()
		now := s.now()
		tr, err = Decide(&working, level, outcome, actor, now)
		if err != nil {
			return err
		}

		if tr.Debits() {
			bal, err := repo.LockBalance(ctx, working.StaffID)
			if err != nil {
				return err
			}
			days := decimal.NewFromInt(int64(working.Days))
			before := bal.Amount(working.LeaveType)
			if err := bal.Debit(working.LeaveType, days); err != nil {
				return err
			}
			bal.UpdatedAt = now
			if err := repo.UpdateBalance(ctx, bal); err != nil {
				return err
			}
			m := newMovement(bal, working.LeaveType, MovementDebit, days, before, actor, working.ID, "leave request approved", now)
			m.ID = s.newID()
			if err := repo.InsertMovement(ctx, m); err != nil {
				return err
			}
		}

		if err := repo.UpdateRequest(ctx, working); err != nil {
			return err
		}
		working.Version++
		req = working
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrInsufficientBalance) {
			s.recordDecision("refused")
		}
		return Request{}, err
	}

	s.recordDecision(string(tr.Outcome))
	s.audit(ctx, AuditEntry{
		Action:         ActionRequestDecide,
		User:           actor.label(),
		UserRole:       actor.Role,
		StaffID:        req.StaffID,
		LeaveRequestID: req.ID,
		Details: AuditDetails{
			Severity:   SeverityInfo,
			LeaveType:  req.LeaveType,
			Days:       decPtr(decimal.NewFromInt(int64(req.Days))),
			FromStatus: tr.From,
			ToStatus:   tr.To,
			Level:      tr.Level,
			Outcome:    tr.Outcome,
		},
	})

	n := Notification{Status: req.Status, Level: tr.Level}
	switch {
	case req.Status == StatusApproved:
		n.Kind = NotifyApproved
	case req.Status == StatusRejected:
		n.Kind = NotifyRejected
	default:
		n.Kind = NotifyLevelAdvanced
		n.Level = tr.NextLevel
		n.NextRole = tr.NextRole
	}
	s.notify(ctx, req, n)
	return req, nil
}

// Cancel withdraws a pending request. Only the requester or HR may cancel.
func (s *Service) Cancel(ctx context.Context, actor Actor, requestID string) (Request, error) {
	var (
		req Request
		tr  Transition
	)
	err := s.Store.WithTx(ctx, func(repo Repository) error {
		current, err := repo.LockRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if current.StaffID != actor.StaffID && actor.Role != RoleHR {
			return ErrForbidden
		}
		working := current.Clone()
		tr, err = Cancel(&working, s.now())
		if err != nil {
			return err
		}
		if err := repo.UpdateRequest(ctx, working); err != nil {
			return err
		}
		working.Version++
		req = working
		return nil
	})
	if err != nil {
		return Request{}, err
	}

	s.audit(ctx, AuditEntry{
		Action:         ActionRequestCancel,
		User:           actor.label(),
		UserRole:       actor.Role,
		StaffID:        req.StaffID,
		LeaveRequestID: req.ID,
		Details: AuditDetails{
			Severity:   SeverityInfo,
			LeaveType:  req.LeaveType,
			FromStatus: tr.From,
			ToStatus:   tr.To,
		},
	})
	s.notify(ctx, req, Notification{Kind: NotifyCancelled, Status: req.Status})
	return req, nil
}

func (s *Service) GetRequest(ctx context.Context, requestID string) (Request, error) {
	return s.Store.GetRequest(ctx, requestID)
}

func (s *Service) ListRequests(ctx context.Context, filter RequestFilter) (RequestListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.Store.ListRequests(ctx, filter)
}

func (s *Service) GetBalance(ctx context.Context, staffID string) (Balance, error) {
	return s.Store.GetBalance(ctx, staffID)
}

func (s *Service) ListMovements(ctx context.Context, staffID string, leaveType LeaveType) ([]BalanceMovement, error) {
	return s.Store.ListMovements(ctx, staffID, leaveType)
}

// CreateBalance opens the balance row for a newly onboarded staff member.
func (s *Service) CreateBalance(ctx context.Context, actor Actor, b Balance) (Balance, error) {
	if actor.Role != RoleHR {
		return Balance{}, ErrForbidden
	}
	b.StaffID = strings.TrimSpace(b.StaffID)
	if b.StaffID == "" {
		return Balance{}, invalidInput("staff id is required")
	}
	if !b.NonNegative() {
		return Balance{}, invalidInput("opening balances must not be negative")
	}
	now := s.now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	b.Version = 1
	if err := s.Store.InsertBalance(ctx, b); err != nil {
		return Balance{}, err
	}
	s.audit(ctx, AuditEntry{
		Action:   ActionBalanceCreate,
		User:     actor.label(),
		UserRole: actor.Role,
		StaffID:  b.StaffID,
		Details:  AuditDetails{Severity: SeverityInfo},
	})
	return b, nil
}

// AdjustBalance applies a manual HR correction. Positive amounts credit, negative amounts debit.
func (s *Service) AdjustBalance(ctx context.Context, actor Actor, staffID string, leaveType LeaveType, amount decimal.Decimal, reason string) (Balance, error) {
	if actor.Role != RoleHR {
		return Balance{}, ErrForbidden
	}
	if !leaveType.Valid() {
		return Balance{}, ErrInvalidLeaveType
	}
	if amount.IsZero() {
		return Balance{}, invalidInput("adjustment amount must not be zero")
	}

	var (
		out    Balance
		before decimal.Decimal
	)
	err := s.Store.WithTx(ctx, func(repo Repository) error {
		bal, err := repo.LockBalance(ctx, staffID)
		if err != nil {
			return err
		}
		now := s.now()
		before = bal.Amount(leaveType)
		kind := MovementCredit
		if amount.IsNegative() {
			kind = MovementDebit
			if err := bal.Debit(leaveType, amount.Neg()); err != nil {
				return err
			}
		} else if err := bal.Credit(leaveType, amount); err != nil {
			return err
		}
		bal.UpdatedAt = now
		if err := repo.UpdateBalance(ctx, bal); err != nil {
			return err
		}
		m := newMovement(bal, leaveType, kind, amount.Abs(), before, actor, "", reason, now)
		m.ID = s.newID()
		if err := repo.InsertMovement(ctx, m); err != nil {
			return err
		}
		bal.Version++
		out = bal
		return nil
	})
	if err != nil {
		return Balance{}, err
	}

	s.audit(ctx, AuditEntry{
		Action:   ActionBalanceAdjust,
		User:     actor.label(),
		UserRole: actor.Role,
		StaffID:  staffID,
		Details: AuditDetails{
			Severity:   SeverityInfo,
			LeaveType:  leaveType,
			Days:       decPtr(amount),
			DaysBefore: decPtr(before),
			DaysAfter:  decPtr(out.Amount(leaveType)),
			Reason:     reason,
		},
	})
	return out, nil
}

func (s *Service) ActivePolicy(ctx context.Context, leaveType LeaveType) (Policy, error) {
	return s.Store.ActivePolicy(ctx, leaveType)
}

func (s *Service) ListPolicies(ctx context.Context) ([]Policy, error) {
	return s.Store.ListPolicies(ctx)
}

// CreatePolicy stores a new active policy and retires any previous active policy for the same type.
func (s *Service) CreatePolicy(ctx context.Context, actor Actor, p Policy) (Policy, error) {
	if actor.Role != RoleHR {
		return Policy{}, ErrForbidden
	}
	if err := s.validatePolicy(ctx, p); err != nil {
		return Policy{}, err
	}
	now := s.now()
	p.ID = s.newID()
	p.Active = true
	p.CreatedAt = now
	p.UpdatedAt = now

	err := s.Store.WithTx(ctx, func(repo Repository) error {
		if err := repo.DeactivatePolicies(ctx, p.LeaveType, p.ID, now); err != nil {
			return err
		}
		return repo.InsertPolicy(ctx, p)
	})
	if err != nil {
		return Policy{}, err
	}
	s.audit(ctx, AuditEntry{
		Action:   ActionPolicyCreate,
		User:     actor.label(),
		UserRole: actor.Role,
		Details:  AuditDetails{Severity: SeverityInfo, LeaveType: p.LeaveType, PolicyID: p.ID},
	})
	return p, nil
}

func (s *Service) UpdatePolicy(ctx context.Context, actor Actor, p Policy) (Policy, error) {
	if actor.Role != RoleHR {
		return Policy{}, ErrForbidden
	}
	if err := s.validatePolicy(ctx, p); err != nil {
		return Policy{}, err
	}
	var out Policy
	err := s.Store.WithTx(ctx, func(repo Repository) error {
		existing, err := repo.GetPolicy(ctx, p.ID)
		if err != nil {
			return err
		}
		if existing.LeaveType != p.LeaveType {
			return invalidPolicy("leave type of an existing policy cannot change")
		}
		now := s.now()
		p.CreatedAt = existing.CreatedAt
		p.UpdatedAt = now
		if p.Active && !existing.Active {
			if err := repo.DeactivatePolicies(ctx, p.LeaveType, p.ID, now); err != nil {
				return err
			}
		}
		if err := repo.UpdatePolicy(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return Policy{}, err
	}
	s.audit(ctx, AuditEntry{
		Action:   ActionPolicyUpdate,
		User:     actor.label(),
		UserRole: actor.Role,
		Details:  AuditDetails{Severity: SeverityInfo, LeaveType: out.LeaveType, PolicyID: out.ID},
	})
	return out, nil
}

// DeactivatePolicy soft-disables a policy. Policies are never deleted.
func (s *Service) DeactivatePolicy(ctx context.Context, actor Actor, policyID string) error {
	if actor.Role != RoleHR {
		return ErrForbidden
	}
	var p Policy
	err := s.Store.WithTx(ctx, func(repo Repository) error {
		var err error
		p, err = repo.GetPolicy(ctx, policyID)
		if err != nil {
			return err
		}
		p.Active = false
		p.UpdatedAt = s.now()
		return repo.UpdatePolicy(ctx, p)
	})
	if err != nil {
		return err
	}
	s.audit(ctx, AuditEntry{
		Action:   ActionPolicyDisable,
		User:     actor.label(),
		UserRole: actor.Role,
		Details:  AuditDetails{Severity: SeverityInfo, LeaveType: p.LeaveType, PolicyID: p.ID},
	})
	return nil
}

func (s *Service) validatePolicy(ctx context.Context, p Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if s.Statutory != nil {
		if err := s.Statutory.ValidatePolicy(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) audit(ctx context.Context, entry AuditEntry) {
	if s.Audit == nil {
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	if err := s.Audit.Record(ctx, entry); err != nil {
		slog.Warn("audit "+entry.Action+" failed", "err", err)
	}
}

func (s *Service) notify(ctx context.Context, req Request, n Notification) {
	if s.Notify == nil {
		return
	}
	n.RequestID = req.ID
	n.StaffID = req.StaffID
	n.StaffName = req.StaffName
	n.LeaveType = req.LeaveType
	if err := s.Notify.Notify(ctx, n); err != nil {
		slog.Warn("leave notification failed", "kind", n.Kind, "requestId", req.ID, "err", err)
	}
}

func (s *Service) recordDecision(outcome string) {
	if s.Metrics != nil {
		s.Metrics.Decision(outcome)
	}
}

func (s *Service) recordAccrual(status string) {
	if s.Metrics != nil {
		s.Metrics.Accrual(status)
	}
}

func (s *Service) resolver() LevelRoleResolver {
	if s.Resolver == nil {
		return DefaultRoleResolver{}
	}
	return s.Resolver
}

var defaultLocker = NewLocalLocker()

func (s *Service) locker() Locker {
	if s.Locker == nil {
		return defaultLocker
	}
	return s.Locker
}

func (s *Service) accrualConcurrency() int {
	if s.AccrualConcurrency <= 0 {
		return 1
	}
	return s.AccrualConcurrency
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	return uuid.NewString()
}

// LocalLocker serialises keys within one process.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	acquired := make(chan struct{})
	go func() {
		m.Lock()
		close(acquired)
	}()
	select {
	case <-acquired:
		return m.Unlock, nil
	case <-ctx.Done():
		go func() {
			<-acquired
			m.Unlock()
		}()
		return nil, ctx.Err()
	}
}
