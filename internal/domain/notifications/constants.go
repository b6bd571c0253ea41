package notifications

const (
	TypeLeaveSubmitted     = "leave_submitted"
	TypeLeaveAwaiting      = "leave_awaiting_approval"
	TypeLeaveLevelAdvanced = "leave_level_advanced"
	TypeLeaveApproved      = "leave_approved"
	TypeLeaveRejected      = "leave_rejected"
	TypeLeaveCancelled     = "leave_cancelled"
)

// rolePrefix marks a shared inbox read by everyone holding the role.
const rolePrefix = "role:"
