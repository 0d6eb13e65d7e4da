package ratelimit

import (
	"math"
	"time"
)

// Class selects the window and threshold applied to a request.
type Class string

const (
	ClassAuth       Class = "auth"
	ClassUpload     Class = "upload"
	ClassAdmin      Class = "admin"
	ClassTournament Class = "tournament"
	ClassAPI        Class = "api"
)

// Policy is a sliding window of Window holding at most Max requests.
// FailOpen decides the outcome when the counter store cannot be reached.
type Policy struct {
	Window   time.Duration
	Max      int
	FailOpen bool
}

// DefaultPolicies fail closed everywhere except general API traffic.
var DefaultPolicies = map[Class]Policy{
	ClassAuth:       {Window: 15 * time.Minute, Max: 5},
	ClassUpload:     {Window: time.Minute, Max: 5},
	ClassAdmin:      {Window: time.Minute, Max: 50},
	ClassTournament: {Window: time.Minute, Max: 3},
	ClassAPI:        {Window: time.Minute, Max: 100, FailOpen: true},
}

type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// Degraded is set when the store was unreachable and the policy decided.
	Degraded bool
}

// RetryAfter is the whole number of seconds until ResetAt, at least one.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	secs := math.Ceil(d.ResetAt.Sub(now).Seconds())
	if secs < 1 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}
