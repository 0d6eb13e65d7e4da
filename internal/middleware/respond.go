package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"

	"tantalus-boxing/internal/apperr"
	"tantalus-boxing/internal/service"
)

// WriteResult writes res as JSON with the status its code maps to. A rate
// limited result also carries Retry-After in seconds.
func WriteResult(w http.ResponseWriter, res service.Result) {
	w.Header().Set("Content-Type", "application/json")
	if res.Code == apperr.CodeRateLimited && res.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(res.RetryAfter))
	}
	w.WriteHeader(res.Status())
	_ = json.NewEncoder(w).Encode(res)
}
