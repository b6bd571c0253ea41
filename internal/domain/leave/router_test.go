package leave

import (
	"errors"
	"testing"
	"time"
)

var (
	manager   = Actor{UserID: "u-mgr", StaffID: "M1", Name: "Mgr", Role: RoleManager}
	hrOfficer = Actor{UserID: "u-hr", StaffID: "H1", Name: "HR", Role: RoleHR}
	employee  = Actor{UserID: "u-emp", StaffID: "S1", Name: "Emp", Role: RoleEmployee}
)

func twoLevelRequest() Request {
	p := Policy{LeaveType: TypeAnnual, ApprovalLevels: 2}
	return Request{
		ID:             "r1",
		StaffID:        "S1",
		LeaveType:      TypeAnnual,
		Days:           3,
		Status:         StatusPending,
		ApprovalLevels: BuildLevels(&p, nil, TypeAnnual, "S1"),
	}
}

func TestBuildLevels(t *testing.T) {
	if got := BuildLevels(nil, nil, TypeAnnual, "S1"); got != nil {
		t.Fatalf("expected no levels without a policy, got %+v", got)
	}
	single := Policy{ApprovalLevels: 1}
	if got := BuildLevels(&single, nil, TypeAnnual, "S1"); got != nil {
		t.Fatalf("expected no levels for a single-level policy, got %+v", got)
	}

	three := Policy{ApprovalLevels: 3}
	levels := BuildLevels(&three, DefaultRoleResolver{}, TypeStudy, "S1")
	want := []Role{RoleManager, RoleHR, RoleHR}
	if len(levels) != len(want) {
		t.Fatalf("expected %d levels, got %d", len(want), len(levels))
	}
	for i, lvl := range levels {
		if lvl.Level != i+1 || lvl.ApproverRole != want[i] || lvl.Status != LevelPending {
			t.Fatalf("level %d: got %+v", i+1, lvl)
		}
	}
}

type hrOnlyResolver struct{}

func (hrOnlyResolver) ApproverRole(LeaveType, int, string) Role { return RoleHR }

func TestBuildLevelsUsesResolver(t *testing.T) {
	p := Policy{ApprovalLevels: 2}
	for _, lvl := range BuildLevels(&p, hrOnlyResolver{}, TypeAnnual, "S1") {
		if lvl.ApproverRole != RoleHR {
			t.Fatalf("expected resolver role, got %+v", lvl)
		}
	}
}

func TestDecideTwoLevelApproval(t *testing.T) {
	req := twoLevelRequest()
	now := time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC)

	tr, err := Decide(&req, 1, OutcomeApproved, manager, now)
	if err != nil {
		t.Fatalf("level 1: %v", err)
	}
	if req.Status != StatusPending || tr.Final || tr.Debits() {
		t.Fatalf("expected request still pending after level 1, got %s", req.Status)
	}
	if req.ApprovalLevels[0].Status != LevelApproved || req.ApprovalLevels[1].Status != LevelPending {
		t.Fatalf("unexpected levels after level 1: %+v", req.ApprovalLevels)
	}
	if tr.NextLevel != 2 || tr.NextRole != RoleHR {
		t.Fatalf("expected hand-off to level 2 hr, got %+v", tr)
	}
	if req.ApprovalLevels[0].ApproverName != "Mgr" || req.ApprovalLevels[0].ApprovalDate == nil {
		t.Fatalf("expected level 1 to record approver, got %+v", req.ApprovalLevels[0])
	}

	tr, err = Decide(&req, 2, OutcomeApproved, hrOfficer, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("level 2: %v", err)
	}
	if req.Status != StatusApproved || !tr.Final || !tr.Debits() {
		t.Fatalf("expected final approval, got status %s transition %+v", req.Status, tr)
	}
	if req.ApprovedBy != "HR" || req.ApprovalDate == nil {
		t.Fatalf("expected approvedBy and approvalDate, got %q %v", req.ApprovedBy, req.ApprovalDate)
	}
}

func TestDecideRejectAtFirstLevel(t *testing.T) {
	req := twoLevelRequest()

	tr, err := Decide(&req, 1, OutcomeRejected, manager, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Status != StatusRejected || tr.Debits() {
		t.Fatalf("expected rejected without debit, got %s", req.Status)
	}
	if req.ApprovalLevels[0].Status != LevelRejected {
		t.Fatalf("expected level 1 rejected, got %s", req.ApprovalLevels[0].Status)
	}
	if req.ApprovalLevels[1].Status != LevelPending {
		t.Fatalf("expected level 2 untouched, got %s", req.ApprovalLevels[1].Status)
	}
}

func TestDecideOutOfOrderLeavesRequestUntouched(t *testing.T) {
	req := twoLevelRequest()
	before := req.Clone()

	_, err := Decide(&req, 2, OutcomeApproved, hrOfficer, time.Now())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if req.Status != before.Status {
		t.Fatalf("status changed to %s", req.Status)
	}
	for i := range req.ApprovalLevels {
		if req.ApprovalLevels[i] != before.ApprovalLevels[i] {
			t.Fatalf("level %d changed: %+v", i+1, req.ApprovalLevels[i])
		}
	}
}

func TestDecideRejectsWrongRole(t *testing.T) {
	req := twoLevelRequest()
	if _, err := Decide(&req, 1, OutcomeApproved, hrOfficer, time.Now()); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for hr at manager level, got %v", err)
	}
	if req.ApprovalLevels[0].Status != LevelPending {
		t.Fatalf("level 1 changed: %+v", req.ApprovalLevels[0])
	}
}

func TestDecideTerminalRequests(t *testing.T) {
	for _, status := range []RequestStatus{StatusApproved, StatusRejected, StatusCancelled} {
		req := twoLevelRequest()
		req.Status = status
		if _, err := Decide(&req, 1, OutcomeApproved, manager, time.Now()); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("%s: expected ErrInvalidTransition, got %v", status, err)
		}
		if req.Status != status {
			t.Fatalf("%s: status changed to %s", status, req.Status)
		}
	}
}

func TestDecideSingleLevel(t *testing.T) {
	req := Request{ID: "r2", StaffID: "S1", LeaveType: TypeSick, Days: 1, Status: StatusPending}

	if _, err := Decide(&req, 0, OutcomeApproved, employee, time.Now()); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected employee to be refused, got %v", err)
	}
	if _, err := Decide(&req, 2, OutcomeApproved, manager, time.Now()); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected level 2 to be refused, got %v", err)
	}

	tr, err := Decide(&req, 0, OutcomeApproved, manager, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Status != StatusApproved || tr.Level != 1 || !tr.Debits() {
		t.Fatalf("expected single-level approval, got %s %+v", req.Status, tr)
	}
}

func TestCurrentLevelIsMonotonic(t *testing.T) {
	p := Policy{ApprovalLevels: 3}
	req := Request{Status: StatusPending, ApprovalLevels: BuildLevels(&p, nil, TypeStudy, "S1")}
	actors := []Actor{manager, hrOfficer, hrOfficer}

	prev := 0
	for i := range actors {
		lvl, ok := CurrentLevel(req)
		if !ok || lvl <= prev {
			t.Fatalf("step %d: expected current level above %d, got %d (ok=%v)", i, prev, lvl, ok)
		}
		prev = lvl
		if _, err := Decide(&req, lvl, OutcomeApproved, actors[i], time.Now()); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if _, ok := CurrentLevel(req); ok {
		t.Fatal("expected no current level once approved")
	}
}

func TestCancel(t *testing.T) {
	req := twoLevelRequest()
	if _, err := Cancel(&req, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", req.Status)
	}
	if _, err := Cancel(&req, time.Now()); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected second cancel to fail, got %v", err)
	}
}
