package leave

import "time"

// LevelRoleResolver maps an ordinal approval level to the role allowed to decide it.
type LevelRoleResolver interface {
	ApproverRole(leaveType LeaveType, level int, staffID string) Role
}

// DefaultRoleResolver sends level 1 to the line manager and every later level to HR.
type DefaultRoleResolver struct{}

func (DefaultRoleResolver) ApproverRole(_ LeaveType, level int, _ string) Role {
	if level == 1 {
		return RoleManager
	}
	return RoleHR
}

// BuildLevels returns the approval chain for a new request. A nil policy or a policy
// with a single approval level yields no chain.
func BuildLevels(policy *Policy, resolver LevelRoleResolver, leaveType LeaveType, staffID string) []ApprovalLevel {
	if policy == nil || policy.EffectiveApprovalLevels() <= 1 {
		return nil
	}
	if resolver == nil {
		resolver = DefaultRoleResolver{}
	}
	count := policy.EffectiveApprovalLevels()
	levels := make([]ApprovalLevel, 0, count)
	for i := 1; i <= count; i++ {
		levels = append(levels, ApprovalLevel{
			Level:        i,
			ApproverRole: resolver.ApproverRole(leaveType, i, staffID),
			Status:       LevelPending,
		})
	}
	return levels
}

// CurrentLevel returns the lowest pending level whose predecessors are all approved.
func CurrentLevel(req Request) (int, bool) {
	if req.Status != StatusPending {
		return 0, false
	}
	for i, lvl := range req.ApprovalLevels {
		switch lvl.Status {
		case LevelApproved:
			continue
		case LevelPending:
			return i + 1, true
		default:
			return 0, false
		}
	}
	return 0, false
}

// Transition describes what a successful decision did to a request.
type Transition struct {
	From      RequestStatus
	To        RequestStatus
	Level     int
	Outcome   Outcome
	Final     bool
	NextLevel int
	NextRole  Role
}

// Debits reports whether the transition must be paid for by a balance debit.
func (t Transition) Debits() bool {
	return t.Final && t.Outcome == OutcomeApproved
}

// Decide applies an approver's outcome to req. On any precondition failure it returns
// ErrInvalidTransition and leaves req untouched.
func Decide(req *Request, level int, outcome Outcome, approver Actor, now time.Time) (Transition, error) {
	if !outcome.Valid() {
		return Transition{}, invalidTransition("unknown outcome %q", outcome)
	}
	if req.Status != StatusPending {
		return Transition{}, invalidTransition("request is %s", req.Status)
	}

	tr := Transition{From: req.Status, Outcome: outcome}

	if len(req.ApprovalLevels) == 0 {
		if level != 0 && level != 1 {
			return Transition{}, invalidTransition("request has no approval level %d", level)
		}
		if !approver.Role.CanApprove() {
			return Transition{}, invalidTransition("role %q cannot decide leave requests", approver.Role)
		}
		tr.Level = 1
		tr.Final = true
	} else {
		current, ok := CurrentLevel(*req)
		if !ok {
			return Transition{}, invalidTransition("request has no open approval level")
		}
		if level != current {
			return Transition{}, invalidTransition("level %d is not the current level %d", level, current)
		}
		expected := req.ApprovalLevels[current-1].ApproverRole
		if approver.Role != expected {
			return Transition{}, invalidTransition("level %d requires role %q, got %q", level, expected, approver.Role)
		}
		tr.Level = current
		tr.Final = current == len(req.ApprovalLevels)

		lvl := &req.ApprovalLevels[current-1]
		decidedAt := now
		lvl.ApproverName = approver.label()
		lvl.ApprovalDate = &decidedAt
		if outcome == OutcomeApproved {
			lvl.Status = LevelApproved
		} else {
			lvl.Status = LevelRejected
		}
	}

	switch {
	case outcome == OutcomeRejected:
		req.Status = StatusRejected
	case tr.Final:
		decidedAt := now
		req.Status = StatusApproved
		req.ApprovedBy = approver.label()
		req.ApprovalDate = &decidedAt
	default:
		tr.NextLevel = tr.Level + 1
		tr.NextRole = req.ApprovalLevels[tr.Level].ApproverRole
	}
	req.UpdatedAt = now
	tr.To = req.Status
	return tr, nil
}

// Cancel withdraws a pending request. Balances are untouched since nothing was debited.
func Cancel(req *Request, now time.Time) (Transition, error) {
	if req.Status != StatusPending {
		return Transition{}, invalidTransition("request is %s", req.Status)
	}
	tr := Transition{From: req.Status, To: StatusCancelled, Final: true}
	req.Status = StatusCancelled
	req.UpdatedAt = now
	return tr, nil
}
