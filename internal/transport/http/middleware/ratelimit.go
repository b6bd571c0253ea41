package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"hrleave/internal/requestctx"
	"hrleave/internal/transport/http/api"
)

// RateLimit throttles per authenticated user, falling back to client ip.
func RateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	if limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(actorOrIPKey),
		httprate.WithLimitHandler(limitExceeded(limit)),
	)
}

// SensitiveMutationRateLimit is the tighter budget for approvals and accrual runs.
func SensitiveMutationRateLimit(baseLimit int, window time.Duration) func(http.Handler) http.Handler {
	return RateLimit(max(baseLimit/2, 1), window)
}

func actorOrIPKey(r *http.Request) (string, error) {
	if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
		return "user:" + user.UserID, nil
	}
	if ip := requestctx.GetClientIP(r.Context()); ip != "" {
		return "ip:" + ip, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

func limitExceeded(limit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Warn("rate limit exceeded",
			"path", r.URL.Path,
			"method", r.Method,
			"limit", limit,
		)
		api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	}
}
