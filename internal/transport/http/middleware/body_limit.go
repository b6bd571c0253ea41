package middleware

import (
	"net/http"
	"strconv"

	"hrleave/internal/transport/http/api"
)

// BodyLimit caps request bodies at maxBytes. A declared Content-Length over the
// cap is refused before the handler runs; undeclared bodies fail on read.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if maxBytes <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > maxBytes {
				api.FailWithDetails(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large",
					map[string]string{"limit": strconv.FormatInt(maxBytes, 10)}, GetRequestID(r.Context()))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
