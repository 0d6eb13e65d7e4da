package service

import (
	"math"
	"net/http"

	"tantalus-boxing/internal/apperr"
)

// Result is the envelope every action returns. Exactly one of Success or
// Error is meaningful.
type Result struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message,omitempty"`
	Data       any               `json:"data,omitempty"`
	Error      string            `json:"error,omitempty"`
	Code       apperr.Code       `json:"code,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
	RetryAfter int               `json:"retry_after,omitempty"`
}

func OK(message string, data any) Result {
	return Result{Success: true, Message: message, Data: data}
}

// Fail converts err into a caller-safe envelope. Causes are never copied.
func Fail(err error) Result {
	e := apperr.From(err)
	r := Result{
		Error:   e.Message,
		Code:    e.Code,
		Details: e.Fields,
	}
	if e.RetryAfter > 0 {
		r.RetryAfter = int(math.Ceil(e.RetryAfter.Seconds()))
	}
	return r
}

// Status is the HTTP status the envelope is written with.
func (r Result) Status() int {
	if r.Success {
		return http.StatusOK
	}
	return r.Code.HTTPStatus()
}
