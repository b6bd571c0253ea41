package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"hrleave/internal/auth"
	domainauth "hrleave/internal/domain/auth"
	"hrleave/internal/domain/leave"
	"hrleave/internal/transport/http/api"
)

// Auth attaches the bearer token's user to the request context. Requests with
// no Authorization header pass through anonymous and RequirePermission rejects
// them later. A header that is present but malformed, expired or signed with
// another key is refused here.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
				api.Fail(w, http.StatusUnauthorized, "invalid_token", "authorization must be a bearer token", GetRequestID(r.Context()))
				return
			}

			claims, err := auth.ParseToken(secret, strings.TrimSpace(token))
			if err != nil {
				slog.Debug("token rejected", "err", err, "requestId", GetRequestID(r.Context()))
				api.Fail(w, http.StatusUnauthorized, "invalid_token", "token is invalid or expired", GetRequestID(r.Context()))
				return
			}
			role := leave.Role(claims.Role)
			if !role.Valid() {
				api.Fail(w, http.StatusUnauthorized, "invalid_token", "token carries an unknown role", GetRequestID(r.Context()))
				return
			}

			ctx := WithUser(r.Context(), domainauth.UserContext{
				UserID:  claims.UserID,
				StaffID: claims.StaffID,
				Name:    claims.Name,
				Role:    role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
