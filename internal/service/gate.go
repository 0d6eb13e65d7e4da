package service

import (
	"context"
	"errors"
	"maps"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"tantalus-boxing/internal/apperr"
	"tantalus-boxing/internal/audit"
	"tantalus-boxing/internal/auth"
	"tantalus-boxing/internal/constants"
	"tantalus-boxing/internal/metrics"
	"tantalus-boxing/internal/ratelimit"
)

// Operation describes how the gate treats one action.
type Operation struct {
	Name  string
	Class ratelimit.Class
	// Public operations need no session and are limited by client address.
	Public bool
	Admin  bool
	// Timeout bounds the exec step; zero means constants.DatabaseTimeout.
	Timeout time.Duration
	// Level is the audit level of a success; zero means user_action.
	Level audit.Level
}

// Outcome is what a successful exec step hands back to the gate.
type Outcome struct {
	Message string
	Data    any
	Audit   map[string]any
}

// Gate runs every action through the same steps: identity, validation,
// rate limit, exec, audit. Whatever happens, a Result comes out.
type Gate struct {
	limiter *ratelimit.Limiter
	sink    *audit.Sink
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

func NewGate(limiter *ratelimit.Limiter, sink *audit.Sink, m *metrics.Metrics, logger zerolog.Logger) *Gate {
	return &Gate{
		limiter: limiter,
		sink:    sink,
		metrics: m,
		logger:  logger,
		now:     limiter.Now,
	}
}

// Now is the clock actions stamp records with.
func (g *Gate) Now() time.Time {
	return g.now().UTC()
}

func run[In any](
	ctx context.Context,
	g *Gate,
	op Operation,
	validate func() (In, error),
	exec func(ctx context.Context, caller auth.Identity, in In) (Outcome, error),
) (res Result) {
	start := time.Now()
	log := g.loggerFor(ctx).With().Str("operation", op.Name).Logger()
	caller, signedIn := auth.IdentityFrom(ctx)

	defer func() {
		if p := recover(); p != nil {
			log.Error().
				Interface("panic", p).
				Bytes("stack", debug.Stack()).
				Str("user_id", caller.UserID).
				Msg("action panicked")
			res = Fail(apperr.New(apperr.CodeUnexpected, "An unexpected error occurred"))
		}
		outcome := "ok"
		if !res.Success {
			outcome = string(res.Code)
		}
		g.metrics.ObserveAction(op.Name, outcome, time.Since(start))
	}()

	if !op.Public {
		if !signedIn {
			return Fail(apperr.New(apperr.CodeUnauthenticated, "Please sign in to continue"))
		}
		if op.Admin && !caller.IsAdmin() {
			g.sink.Security("admin action denied", map[string]any{
				"operation": op.Name,
				"user_id":   caller.UserID,
			})
			return Fail(apperr.New(apperr.CodeForbidden, "You do not have permission to do that"))
		}
	}

	in, err := validate()
	if err != nil {
		return Fail(err)
	}

	if op.Class != "" {
		key := caller.UserID
		if op.Public {
			key = ClientIP(ctx)
		}
		decision := g.limiter.Check(ctx, key, op.Class)
		if !decision.Allowed {
			if op.Class == ratelimit.ClassAuth || op.Class == ratelimit.ClassAdmin {
				g.sink.Security("rate limit exceeded", map[string]any{
					"operation": op.Name,
					"class":     string(op.Class),
					"key":       key,
					"degraded":  decision.Degraded,
				})
			}
			return Fail(apperr.RateLimited(decision.RetryAfter(g.limiter.Now())))
		}
	}

	timeout := op.Timeout
	if timeout == 0 {
		timeout = constants.DatabaseTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := exec(execCtx, caller, in)
	if err != nil {
		failure := classifyFailure(err)
		switch failure.Code {
		case apperr.CodePersistenceFailure, apperr.CodeTimeout, apperr.CodeUnexpected:
			log.Error().Err(err).Str("user_id", caller.UserID).Str("code", string(failure.Code)).Msg("action failed")
		default:
			log.Debug().Err(err).Str("user_id", caller.UserID).Str("code", string(failure.Code)).Msg("action rejected")
		}
		return Fail(failure)
	}

	level := op.Level
	if level == "" {
		level = audit.LevelUserAction
	}
	meta := map[string]any{"operation": op.Name}
	if caller.UserID != "" {
		meta["user_id"] = caller.UserID
	}
	maps.Copy(meta, out.Audit)
	g.sink.Emit(level, op.Name+" succeeded", meta)

	return OK(out.Message, out.Data)
}

// classifyFailure keeps domain errors as they are. Anything else came from a
// store or upstream call and is hidden behind a generic message.
func classifyFailure(err error) *apperr.Error {
	var e *apperr.Error
	if errors.As(err, &e) {
		return e
	}
	return apperr.Persistence(err)
}

func (g *Gate) loggerFor(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &g.logger
}

func noInput() (struct{}, error) {
	return struct{}{}, nil
}
