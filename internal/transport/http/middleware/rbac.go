package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"hrleave/internal/domain/leave"
	"hrleave/internal/transport/http/api"
)

type PermissionStore interface {
	HasPermission(ctx context.Context, role leave.Role, permission string) (bool, error)
}

// RequirePermission admits authenticated users whose role grants permission.
// Denials are logged with the caller so access reviews can trace them.
func RequirePermission(permission string, store PermissionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())
			user, ok := GetUser(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
				return
			}

			allowed, err := store.HasPermission(r.Context(), user.Role, permission)
			if err != nil {
				slog.Error("permission check failed", "err", err, "role", user.Role, "permission", permission, "requestId", requestID)
				api.Fail(w, http.StatusInternalServerError, "permission_error", "permission check failed", requestID)
				return
			}
			if !allowed {
				slog.Info("permission denied",
					"userId", user.UserID,
					"staffId", user.StaffID,
					"role", user.Role,
					"permission", permission,
					"path", r.URL.Path,
					"requestId", requestID,
				)
				api.FailWithDetails(w, http.StatusForbidden, "forbidden", "insufficient permissions",
					map[string]string{"permission": permission}, requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
