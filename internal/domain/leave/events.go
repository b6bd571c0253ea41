package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ActionRequestCreate  = "leave.request.create"
	ActionRequestDecide  = "leave.request.decide"
	ActionRequestCancel  = "leave.request.cancel"
	ActionPolicyFallback = "leave.policy.fallback"
	ActionPolicyCreate   = "leave.policy.create"
	ActionPolicyUpdate   = "leave.policy.update"
	ActionPolicyDisable  = "leave.policy.deactivate"
	ActionBalanceCreate  = "leave.balance.create"
	ActionBalanceAdjust  = "leave.balance.adjust"
	ActionAccrualRun     = "leave.accrual.run"
)

const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
)

// AuditDetails is the typed payload of an audit entry. Unused fields are omitted.
type AuditDetails struct {
	Severity    string           `json:"severity"`
	LeaveType   LeaveType        `json:"leaveType,omitempty"`
	Days        *decimal.Decimal `json:"days,omitempty"`
	FromStatus  RequestStatus    `json:"fromStatus,omitempty"`
	ToStatus    RequestStatus    `json:"toStatus,omitempty"`
	Level       int              `json:"level,omitempty"`
	Outcome     Outcome          `json:"outcome,omitempty"`
	DaysBefore  *decimal.Decimal `json:"daysBefore,omitempty"`
	DaysAfter   *decimal.Decimal `json:"daysAfter,omitempty"`
	ExpiredDays *decimal.Decimal `json:"expiredDays,omitempty"`
	Period      string           `json:"period,omitempty"`
	PolicyID    string           `json:"policyId,omitempty"`
	Reason      string           `json:"reason,omitempty"`
}

type AuditEntry struct {
	Action         string       `json:"action"`
	User           string       `json:"user"`
	UserRole       Role         `json:"userRole"`
	StaffID        string       `json:"staffId,omitempty"`
	LeaveRequestID string       `json:"leaveRequestId,omitempty"`
	Details        AuditDetails `json:"details"`
	CreatedAt      time.Time    `json:"createdAt"`
}

type NotificationKind string

const (
	NotifySubmitted     NotificationKind = "submitted"
	NotifyLevelAdvanced NotificationKind = "level_advanced"
	NotifyApproved      NotificationKind = "approved"
	NotifyRejected      NotificationKind = "rejected"
	NotifyCancelled     NotificationKind = "cancelled"
)

// Notification is what the dispatcher receives after a transition commits.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	RequestID string           `json:"requestId"`
	StaffID   string           `json:"staffId"`
	StaffName string           `json:"staffName"`
	LeaveType LeaveType        `json:"leaveType"`
	Status    RequestStatus    `json:"status"`
	Level     int              `json:"level,omitempty"`
	NextRole  Role             `json:"nextRole,omitempty"`
}

func decPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
