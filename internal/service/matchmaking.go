package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"tantalus-boxing/internal/apperr"
	"tantalus-boxing/internal/auth"
	"tantalus-boxing/internal/domain"
	"tantalus-boxing/internal/ratelimit"
	"tantalus-boxing/internal/repository"
	"tantalus-boxing/internal/validation"
)

type MatchmakingService struct {
	gate      *Gate
	validator *validation.Validator
	fighters  *repository.FighterRepository
	requests  *repository.MatchmakingRepository
	logger    zerolog.Logger
}

func NewMatchmakingService(
	gate *Gate,
	validator *validation.Validator,
	fighters *repository.FighterRepository,
	requests *repository.MatchmakingRepository,
	logger zerolog.Logger,
) *MatchmakingService {
	return &MatchmakingService{gate: gate, validator: validator, fighters: fighters, requests: requests, logger: logger}
}

var requestMatchOp = Operation{Name: "request_matchmaking", Class: ratelimit.ClassAPI}

const pendingRequestMessage = "You already have a pending matchmaking request"

// Request queues the caller for a match. A fighter holds at most one
// pending request at a time.
func (s *MatchmakingService) Request(ctx context.Context, form validation.Form) Result {
	return run(ctx, s.gate, requestMatchOp,
		func() (validation.MatchmakingInput, error) { return s.validator.Matchmaking(form) },
		func(ctx context.Context, caller auth.Identity, in validation.MatchmakingInput) (Outcome, error) {
			profile, err := callerFighter(ctx, s.fighters, caller.UserID)
			if err != nil {
				return Outcome{}, err
			}

			pending, err := s.requests.HasPending(ctx, profile.ID)
			if err != nil {
				return Outcome{}, err
			}
			if pending {
				return Outcome{}, apperr.New(apperr.CodeConflict, pendingRequestMessage)
			}

			req := &domain.MatchmakingRequest{
				FighterID:     profile.ID,
				WeightClass:   in.WeightClass,
				PreferredDate: in.PreferredDate,
				Notes:         in.Notes,
				Status:        domain.MatchmakingPending,
				CreatedAt:     s.gate.Now(),
			}
			if err := s.requests.Create(ctx, req); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return Outcome{}, apperr.Wrap(apperr.CodeConflict, pendingRequestMessage, err)
				}
				return Outcome{}, err
			}
			return Outcome{
				Message: "Matchmaking request submitted",
				Data:    req,
				Audit:   map[string]any{"fighter_id": profile.ID, "request_id": req.ID},
			}, nil
		})
}

var cancelMatchOp = Operation{Name: "cancel_matchmaking", Class: ratelimit.ClassAPI}

func (s *MatchmakingService) Cancel(ctx context.Context, form validation.Form) Result {
	return run(ctx, s.gate, cancelMatchOp,
		func() (string, error) { return s.validator.Reference(form, "request_id") },
		func(ctx context.Context, caller auth.Identity, id string) (Outcome, error) {
			profile, err := callerFighter(ctx, s.fighters, caller.UserID)
			if err != nil {
				return Outcome{}, err
			}

			err = s.requests.Cancel(ctx, id, profile.ID)
			switch {
			case errors.Is(err, repository.ErrNotFound):
				return Outcome{}, apperr.Wrap(apperr.CodeNotFound, "Matchmaking request not found", err)
			case errors.Is(err, repository.ErrStale):
				return Outcome{}, apperr.Wrap(apperr.CodeConflict, "Only pending requests can be cancelled", err)
			case err != nil:
				return Outcome{}, err
			}
			return Outcome{
				Message: "Matchmaking request cancelled",
				Audit:   map[string]any{"fighter_id": profile.ID, "request_id": id},
			}, nil
		})
}
