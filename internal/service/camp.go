package service

import (
	"context"

	"github.com/rs/zerolog"

	"tantalus-boxing/internal/auth"
	"tantalus-boxing/internal/domain"
	"tantalus-boxing/internal/ratelimit"
	"tantalus-boxing/internal/repository"
	"tantalus-boxing/internal/validation"
)

type CampService struct {
	gate      *Gate
	validator *validation.Validator
	fighters  *repository.FighterRepository
	camps     *repository.CampRepository
	logger    zerolog.Logger
}

func NewCampService(
	gate *Gate,
	validator *validation.Validator,
	fighters *repository.FighterRepository,
	camps *repository.CampRepository,
	logger zerolog.Logger,
) *CampService {
	return &CampService{gate: gate, validator: validator, fighters: fighters, camps: camps, logger: logger}
}

var createCampOp = Operation{Name: "create_training_camp", Class: ratelimit.ClassAPI}

func (s *CampService) Create(ctx context.Context, form validation.Form) Result {
	return run(ctx, s.gate, createCampOp,
		func() (validation.TrainingCampInput, error) { return s.validator.TrainingCamp(form) },
		func(ctx context.Context, caller auth.Identity, in validation.TrainingCampInput) (Outcome, error) {
			profile, err := callerFighter(ctx, s.fighters, caller.UserID)
			if err != nil {
				return Outcome{}, err
			}

			camp := &domain.TrainingCamp{
				FighterID: profile.ID,
				Name:      in.Name,
				Location:  in.Location,
				Focus:     in.Focus,
				StartDate: in.StartDate,
				EndDate:   in.EndDate,
				CreatedAt: s.gate.Now(),
			}
			if err := s.camps.Create(ctx, camp); err != nil {
				return Outcome{}, err
			}
			return Outcome{
				Message: "Training camp created",
				Data:    camp,
				Audit:   map[string]any{"fighter_id": profile.ID, "camp_id": camp.ID},
			}, nil
		})
}
