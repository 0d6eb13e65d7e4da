package middleware

import (
	"net/http"
	"strconv"

	"tantalus-boxing/internal/apperr"
	"tantalus-boxing/internal/ratelimit"
	"tantalus-boxing/internal/service"
)

// RateLimit applies class to every request, keyed by client address.
// Rejections are answered with 429 and a Retry-After header.
func RateLimit(limiter *ratelimit.Limiter, class ratelimit.Class) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := limiter.Check(r.Context(), service.ClientIP(r.Context()), class)

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

			if !d.Allowed {
				WriteResult(w, service.Fail(apperr.RateLimited(d.RetryAfter(limiter.Now()))))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
