package auth

import (
	"context"

	"hrleave/internal/domain/leave"
)

const (
	PermLeaveRead     = "leave.read"
	PermLeaveWrite    = "leave.write"
	PermLeaveApprove  = "leave.approve"
	PermBalanceRead   = "leave.balance.read"
	PermBalanceWrite  = "leave.balance.write"
	PermPolicyRead    = "leave.policy.read"
	PermPolicyWrite   = "leave.policy.write"
	PermAccrualRun    = "leave.accrual.run"
	PermAuditRead     = "audit.read"
	PermNotifications = "notifications.read"
	PermSystemAdmin   = "admin.system"
)

var DefaultPermissions = []string{
	PermLeaveRead,
	PermLeaveWrite,
	PermLeaveApprove,
	PermBalanceRead,
	PermBalanceWrite,
	PermPolicyRead,
	PermPolicyWrite,
	PermAccrualRun,
	PermAuditRead,
	PermNotifications,
	PermSystemAdmin,
}

var RolePermissions = map[leave.Role][]string{
	leave.RoleEmployee: {
		PermLeaveRead,
		PermLeaveWrite,
		PermBalanceRead,
		PermPolicyRead,
		PermNotifications,
	},
	leave.RoleManager: {
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermBalanceRead,
		PermPolicyRead,
		PermNotifications,
	},
	leave.RoleHR: {
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermBalanceRead,
		PermBalanceWrite,
		PermPolicyRead,
		PermPolicyWrite,
		PermAccrualRun,
		PermAuditRead,
		PermNotifications,
	},
	leave.RoleAdmin: {
		PermSystemAdmin,
		PermAuditRead,
		PermAccrualRun,
	},
}

// UserContext is the authenticated caller attached to a request.
type UserContext struct {
	UserID  string
	StaffID string
	Name    string
	Role    leave.Role
}

func (u UserContext) Actor() leave.Actor {
	return leave.Actor{UserID: u.UserID, StaffID: u.StaffID, Name: u.Name, Role: u.Role}
}

// StaticPermissions answers permission checks from RolePermissions.
type StaticPermissions struct{}

func (StaticPermissions) HasPermission(_ context.Context, role leave.Role, permission string) (bool, error) {
	for _, p := range RolePermissions[role] {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}
