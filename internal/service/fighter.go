package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"tantalus-boxing/internal/apperr"
	"tantalus-boxing/internal/audit"
	"tantalus-boxing/internal/auth"
	"tantalus-boxing/internal/constants"
	"tantalus-boxing/internal/domain"
	"tantalus-boxing/internal/ratelimit"
	"tantalus-boxing/internal/repository"
	"tantalus-boxing/internal/validation"
)

type FighterService struct {
	gate      *Gate
	validator *validation.Validator
	fighters  *repository.FighterRepository
	logger    zerolog.Logger
}

func NewFighterService(gate *Gate, validator *validation.Validator, fighters *repository.FighterRepository, logger zerolog.Logger) *FighterService {
	return &FighterService{gate: gate, validator: validator, fighters: fighters, logger: logger}
}

var createProfileOp = Operation{Name: "create_fighter_profile", Class: ratelimit.ClassAPI}

// CreateProfile registers the caller as a fighter. New fighters start as
// Amateurs with an empty record.
func (s *FighterService) CreateProfile(ctx context.Context, form validation.Form) Result {
	return run(ctx, s.gate, createProfileOp,
		func() (validation.FighterProfileInput, error) { return s.validator.FighterProfile(form) },
		func(ctx context.Context, caller auth.Identity, in validation.FighterProfileInput) (Outcome, error) {
			exists, err := s.fighters.ExistsForUser(ctx, caller.UserID)
			if err != nil {
				return Outcome{}, err
			}
			if exists {
				return Outcome{}, apperr.New(apperr.CodeConflict, "You already have a fighter profile")
			}

			now := s.gate.Now()
			profile := &domain.FighterProfile{
				UserID:    caller.UserID,
				Tier:      domain.TierAmateur,
				CreatedAt: now,
				UpdatedAt: now,
			}
			applyProfileInput(profile, in)

			if err := s.fighters.Create(ctx, profile); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return Outcome{}, apperr.Wrap(apperr.CodeConflict, "You already have a fighter profile", err)
				}
				return Outcome{}, err
			}
			return Outcome{
				Message: "Fighter profile created",
				Data:    profile,
				Audit:   map[string]any{"fighter_id": profile.ID},
			}, nil
		})
}

var updateProfileOp = Operation{Name: "update_fighter_profile", Class: ratelimit.ClassAPI}

func (s *FighterService) UpdateProfile(ctx context.Context, form validation.Form) Result {
	return run(ctx, s.gate, updateProfileOp,
		func() (validation.FighterProfileInput, error) { return s.validator.FighterProfile(form) },
		func(ctx context.Context, caller auth.Identity, in validation.FighterProfileInput) (Outcome, error) {
			profile, err := callerFighter(ctx, s.fighters, caller.UserID)
			if err != nil {
				return Outcome{}, err
			}

			applyProfileInput(profile, in)
			profile.UpdatedAt = s.gate.Now()
			if err := s.fighters.Update(ctx, profile); err != nil {
				return Outcome{}, notFoundAs(err, "Fighter profile not found")
			}
			return Outcome{
				Message: "Fighter profile updated",
				Data:    profile,
				Audit:   map[string]any{"fighter_id": profile.ID},
			}, nil
		})
}

var changeTierOp = Operation{Name: "change_fighter_tier", Class: ratelimit.ClassAdmin, Admin: true, Level: audit.LevelSecurity}

func (s *FighterService) ChangeTier(ctx context.Context, form validation.Form) Result {
	return run(ctx, s.gate, changeTierOp,
		func() (validation.TierChangeInput, error) { return s.validator.TierChange(form) },
		func(ctx context.Context, caller auth.Identity, in validation.TierChangeInput) (Outcome, error) {
			profile, err := s.fighters.GetByID(ctx, in.FighterID)
			if err != nil {
				return Outcome{}, notFoundAs(err, "Fighter not found")
			}

			previous := profile.Tier
			profile.Tier = in.Tier
			profile.UpdatedAt = s.gate.Now()
			if err := s.fighters.UpdateTier(ctx, profile.ID, in.Tier, profile.UpdatedAt); err != nil {
				return Outcome{}, notFoundAs(err, "Fighter not found")
			}
			return Outcome{
				Message: "Fighter tier updated",
				Data:    profile,
				Audit: map[string]any{
					"fighter_id": profile.ID,
					"from_tier":  string(previous),
					"to_tier":    string(in.Tier),
				},
			}, nil
		})
}

func (s *FighterService) GetFighter(ctx context.Context, id string) (*domain.FighterProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	profile, err := s.fighters.GetByID(ctx, id)
	if err != nil {
		return nil, readError(s.logger, err, "Fighter not found")
	}
	return profile, nil
}

func (s *FighterService) MyProfile(ctx context.Context) (*domain.FighterProfile, error) {
	caller, ok := auth.IdentityFrom(ctx)
	if !ok {
		return nil, apperr.New(apperr.CodeUnauthenticated, "Please sign in to continue")
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	profile, err := callerFighter(ctx, s.fighters, caller.UserID)
	if err != nil {
		return nil, readError(s.logger, err, "")
	}
	return profile, nil
}

// Rankings lists fighters best first. An empty weight class ranks everyone.
func (s *FighterService) Rankings(ctx context.Context, weightClass string, limit int) ([]domain.FighterProfile, error) {
	var class domain.WeightClass
	if weightClass != "" {
		parsed, err := domain.ParseWeightClass(weightClass)
		if err != nil {
			return nil, apperr.Invalid(map[string]string{"weight_class": err.Error()})
		}
		class = parsed
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	fighters, err := s.fighters.Rankings(ctx, class, limit)
	if err != nil {
		return nil, readError(s.logger, err, "")
	}
	return fighters, nil
}

func applyProfileInput(p *domain.FighterProfile, in validation.FighterProfileInput) {
	p.Name = in.Name
	p.Nickname = in.Nickname
	p.Birthday = in.Birthday
	p.HeightCM = in.HeightCM
	p.WeightKG = in.WeightKG
	p.ReachCM = in.ReachCM
	p.Stance = in.Stance
	p.WeightClass = in.WeightClass
	p.Country = in.Country
	p.Bio = in.Bio
}

// callerFighter loads the signed-in user's profile. Most actions need one.
func callerFighter(ctx context.Context, fighters *repository.FighterRepository, userID string) (*domain.FighterProfile, error) {
	profile, err := fighters.GetByUserID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Wrap(apperr.CodeNotFound, "Create your fighter profile first", err)
	}
	return profile, err
}

// readError maps a read failure for callers outside the gate. Store errors
// are logged here since no gate will do it.
func readError(log zerolog.Logger, err error, notFound string) error {
	if notFound != "" && errors.Is(err, repository.ErrNotFound) {
		return apperr.Wrap(apperr.CodeNotFound, notFound, err)
	}
	var e *apperr.Error
	if errors.As(err, &e) {
		return e
	}
	log.Error().Err(err).Msg("read failed")
	return apperr.Persistence(err)
}

func notFoundAs(err error, message string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.Wrap(apperr.CodeNotFound, message, err)
	}
	return err
}
