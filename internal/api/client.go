// Package api holds the outbound HTTP clients for the object store and the
// external log store.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"tantalus-boxing/internal/apperr"
)

// StatusError is a non-2xx reply from an upstream service.
type StatusError struct {
	Service string
	Status  int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error: %d %s", e.Service, e.Status, e.Body)
}

// noBody marks replies whose body is ignored.
type noBody struct{}

func newClient(timeout time.Duration) *fasthttp.Client {
	return &fasthttp.Client{
		MaxConnsPerHost:     100,
		ReadTimeout:         timeout,
		WriteTimeout:        timeout,
		MaxIdleConnDuration: 1 * time.Minute,
	}
}

// doRequest sends req and decodes a JSON reply into T. The context deadline
// bounds the call; without one, fallback applies. An overrun is reported as
// apperr.CodeTimeout.
func doRequest[T any](ctx context.Context, client *fasthttp.Client, service string, req *fasthttp.Request, fallback time.Duration) (*T, error) {
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(fallback)
	}
	if err := client.DoDeadline(req, resp, deadline); err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) || errors.Is(err, fasthttp.ErrDialTimeout) {
			return nil, apperr.Wrap(apperr.CodeTimeout, "The request timed out, please try again",
				fmt.Errorf("%s: %w", service, context.DeadlineExceeded))
		}
		return nil, fmt.Errorf("%s request: %w", service, err)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		body := resp.Body()
		if len(body) > 256 {
			body = body[:256]
		}
		return nil, &StatusError{Service: service, Status: status, Body: string(body)}
	}

	var result T
	if _, skip := any(&result).(*noBody); skip {
		return &result, nil
	}
	if body := resp.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("%s response: %w", service, err)
		}
	}
	return &result, nil
}
