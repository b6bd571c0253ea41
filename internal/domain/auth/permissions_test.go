package auth

import (
	"context"
	"testing"

	"hrleave/internal/domain/leave"
)

func TestRolePermissionsSubset(t *testing.T) {
	allowed := map[string]struct{}{}
	for _, perm := range DefaultPermissions {
		allowed[perm] = struct{}{}
	}

	for role, perms := range RolePermissions {
		if len(perms) == 0 {
			t.Fatalf("role %s has no permissions", role)
		}
		for _, perm := range perms {
			if _, ok := allowed[perm]; !ok {
				t.Fatalf("role %s has unknown permission %s", role, perm)
			}
		}
	}
}

func TestDefaultPermissionsUnique(t *testing.T) {
	seen := map[string]struct{}{}
	for _, perm := range DefaultPermissions {
		if _, ok := seen[perm]; ok {
			t.Fatalf("duplicate permission %s", perm)
		}
		seen[perm] = struct{}{}
	}
}

func TestOnlyApproverRolesMayApprove(t *testing.T) {
	perms := StaticPermissions{}
	for _, role := range []leave.Role{leave.RoleEmployee, leave.RoleManager, leave.RoleHR, leave.RoleAdmin} {
		ok, err := perms.HasPermission(context.Background(), role, PermLeaveApprove)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok != role.CanApprove() {
			t.Fatalf("role %s approve permission = %v, want %v", role, ok, role.CanApprove())
		}
	}
}
