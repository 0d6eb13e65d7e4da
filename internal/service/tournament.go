package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"tantalus-boxing/internal/apperr"
	"tantalus-boxing/internal/auth"
	"tantalus-boxing/internal/constants"
	"tantalus-boxing/internal/domain"
	"tantalus-boxing/internal/ratelimit"
	"tantalus-boxing/internal/repository"
	"tantalus-boxing/internal/validation"
)

type TournamentService struct {
	gate        *Gate
	validator   *validation.Validator
	fighters    *repository.FighterRepository
	tournaments *repository.TournamentRepository
	logger      zerolog.Logger
}

func NewTournamentService(
	gate *Gate,
	validator *validation.Validator,
	fighters *repository.FighterRepository,
	tournaments *repository.TournamentRepository,
	logger zerolog.Logger,
) *TournamentService {
	return &TournamentService{gate: gate, validator: validator, fighters: fighters, tournaments: tournaments, logger: logger}
}

var createTournamentOp = Operation{Name: "create_tournament", Class: ratelimit.ClassTournament}

func (s *TournamentService) Create(ctx context.Context, form validation.Form) Result {
	return run(ctx, s.gate, createTournamentOp,
		func() (validation.TournamentInput, error) { return s.validator.Tournament(form) },
		func(ctx context.Context, caller auth.Identity, in validation.TournamentInput) (Outcome, error) {
			t := &domain.Tournament{
				Name:            in.Name,
				Description:     in.Description,
				WeightClass:     in.WeightClass,
				MinTier:         in.MinTier,
				Location:        in.Location,
				StartDate:       in.StartDate,
				EndDate:         in.EndDate,
				MaxParticipants: in.MaxParticipants,
				Status:          domain.TournamentUpcoming,
				CreatedBy:       caller.UserID,
				CreatedAt:       s.gate.Now(),
			}
			if err := s.tournaments.Create(ctx, t); err != nil {
				return Outcome{}, err
			}
			return Outcome{
				Message: "Tournament created",
				Data:    t,
				Audit:   map[string]any{"tournament_id": t.ID},
			}, nil
		})
}

var joinTournamentOp = Operation{Name: "join_tournament", Class: ratelimit.ClassTournament}

// Join enters the caller into an upcoming tournament they qualify for. The
// participant key and the conditional capacity update in the store are what
// hold under concurrency; the checks here only produce clearer messages.
func (s *TournamentService) Join(ctx context.Context, form validation.Form) Result {
	return run(ctx, s.gate, joinTournamentOp,
		func() (string, error) { return s.validator.Reference(form, "tournament_id") },
		func(ctx context.Context, caller auth.Identity, id string) (Outcome, error) {
			profile, err := callerFighter(ctx, s.fighters, caller.UserID)
			if err != nil {
				return Outcome{}, err
			}

			t, err := s.tournaments.GetByID(ctx, id)
			if err != nil {
				return Outcome{}, notFoundAs(err, "Tournament not found")
			}
			if !t.Status.AcceptsParticipants() {
				return Outcome{}, apperr.New(apperr.CodeConflict, "This tournament is not accepting participants")
			}
			already, err := s.tournaments.IsParticipant(ctx, t.ID, profile.ID)
			if err != nil {
				return Outcome{}, err
			}
			if already {
				return Outcome{}, apperr.New(apperr.CodeConflict, "You have already joined this tournament")
			}
			if !profile.Tier.AtLeast(t.MinTier) {
				return Outcome{}, apperr.New(apperr.CodeForbidden,
					fmt.Sprintf("This tournament requires tier %s or above", t.MinTier))
			}
			if profile.WeightClass != t.WeightClass {
				return Outcome{}, apperr.New(apperr.CodeForbidden,
					fmt.Sprintf("This tournament is for %s fighters", t.WeightClass))
			}

			joined, err := s.tournaments.Join(ctx, t.ID, profile.ID, s.gate.Now())
			switch {
			case errors.Is(err, repository.ErrDuplicate):
				return Outcome{}, apperr.Wrap(apperr.CodeConflict, "You have already joined this tournament", err)
			case errors.Is(err, repository.ErrFull):
				return Outcome{}, apperr.Wrap(apperr.CodeConflict, "This tournament is full", err)
			case err != nil:
				return Outcome{}, err
			}
			return Outcome{
				Message: "Joined tournament",
				Data:    joined,
				Audit:   map[string]any{"tournament_id": t.ID, "fighter_id": profile.ID},
			}, nil
		})
}

func (s *TournamentService) List(ctx context.Context, status string, limit int) ([]domain.Tournament, error) {
	var filter domain.TournamentStatus
	if status != "" {
		parsed, err := domain.ParseTournamentStatus(status)
		if err != nil {
			return nil, apperr.Invalid(map[string]string{"status": err.Error()})
		}
		filter = parsed
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	tournaments, err := s.tournaments.List(ctx, filter, limit)
	if err != nil {
		return nil, readError(s.logger, err, "")
	}
	return tournaments, nil
}
