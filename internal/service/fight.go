package service

import (
	"context"

	"github.com/rs/zerolog"

	"tantalus-boxing/internal/auth"
	"tantalus-boxing/internal/constants"
	"tantalus-boxing/internal/domain"
	"tantalus-boxing/internal/ratelimit"
	"tantalus-boxing/internal/repository"
	"tantalus-boxing/internal/stats"
	"tantalus-boxing/internal/validation"
)

type FightService struct {
	gate      *Gate
	validator *validation.Validator
	fighters  *repository.FighterRepository
	fights    *repository.FightRepository
	logger    zerolog.Logger
}

func NewFightService(
	gate *Gate,
	validator *validation.Validator,
	fighters *repository.FighterRepository,
	fights *repository.FightRepository,
	logger zerolog.Logger,
) *FightService {
	return &FightService{gate: gate, validator: validator, fighters: fighters, fights: fights, logger: logger}
}

type FightRecorded struct {
	Fight   *domain.FightRecord    `json:"fight"`
	Fighter *domain.FighterProfile `json:"fighter"`
}

var createFightOp = Operation{Name: "create_fight_record", Class: ratelimit.ClassAPI}

// CreateFightRecord stores a fight for the caller and folds its outcome into
// their record in the same transaction.
func (s *FightService) CreateFightRecord(ctx context.Context, form validation.Form) Result {
	return run(ctx, s.gate, createFightOp,
		func() (validation.FightRecordInput, error) { return s.validator.FightRecord(form) },
		func(ctx context.Context, caller auth.Identity, in validation.FightRecordInput) (Outcome, error) {
			profile, err := callerFighter(ctx, s.fighters, caller.UserID)
			if err != nil {
				return Outcome{}, err
			}

			fight := &domain.FightRecord{
				FighterID:    profile.ID,
				OpponentName: in.OpponentName,
				FightDate:    in.FightDate,
				Result:       in.Result,
				Method:       in.Method,
				Round:        in.Round,
				PointsEarned: in.PointsEarned,
				Notes:        in.Notes,
				CreatedAt:    s.gate.Now(),
			}
			outcome := stats.OutcomeOf(*fight)

			updated, err := s.fights.CreateWithStats(ctx, fight, func(prior domain.Record) domain.Record {
				return stats.Apply(prior, outcome)
			})
			if err != nil {
				return Outcome{}, notFoundAs(err, "Create your fighter profile first")
			}
			return Outcome{
				Message: "Fight record added",
				Data:    FightRecorded{Fight: fight, Fighter: updated},
				Audit: map[string]any{
					"fighter_id": profile.ID,
					"fight_id":   fight.ID,
					"result":     string(fight.Result),
					"method":     string(fight.Method),
				},
			}, nil
		})
}

func (s *FightService) ListFightRecords(ctx context.Context, fighterID string, limit int) ([]domain.FightRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if _, err := s.fighters.GetByID(ctx, fighterID); err != nil {
		return nil, readError(s.logger, err, "Fighter not found")
	}
	fights, err := s.fights.ListByFighter(ctx, fighterID, limit)
	if err != nil {
		return nil, readError(s.logger, err, "")
	}
	return fights, nil
}
