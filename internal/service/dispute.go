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

type DisputeService struct {
	gate      *Gate
	validator *validation.Validator
	fighters  *repository.FighterRepository
	fights    *repository.FightRepository
	disputes  *repository.DisputeRepository
	logger    zerolog.Logger
}

func NewDisputeService(
	gate *Gate,
	validator *validation.Validator,
	fighters *repository.FighterRepository,
	fights *repository.FightRepository,
	disputes *repository.DisputeRepository,
	logger zerolog.Logger,
) *DisputeService {
	return &DisputeService{gate: gate, validator: validator, fighters: fighters, fights: fights, disputes: disputes, logger: logger}
}

var fileDisputeOp = Operation{Name: "file_dispute", Class: ratelimit.ClassAPI}

// File opens a dispute on one of the caller's own fights.
func (s *DisputeService) File(ctx context.Context, form validation.Form) Result {
	return run(ctx, s.gate, fileDisputeOp,
		func() (validation.DisputeInput, error) { return s.validator.Dispute(form) },
		func(ctx context.Context, caller auth.Identity, in validation.DisputeInput) (Outcome, error) {
			profile, err := callerFighter(ctx, s.fighters, caller.UserID)
			if err != nil {
				return Outcome{}, err
			}

			fight, err := s.fights.GetByID(ctx, in.FightRecordID)
			if err != nil {
				return Outcome{}, notFoundAs(err, "Fight record not found")
			}
			if fight.FighterID != profile.ID {
				return Outcome{}, apperr.New(apperr.CodeNotFound, "Fight record not found")
			}

			d := &domain.Dispute{
				FightRecordID: fight.ID,
				FiledBy:       caller.UserID,
				Reason:        in.Reason,
				Description:   in.Description,
				Status:        domain.DisputePending,
				CreatedAt:     s.gate.Now(),
			}
			if err := s.disputes.Create(ctx, d); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return Outcome{}, apperr.Wrap(apperr.CodeConflict, "This fight already has an open dispute", err)
				}
				return Outcome{}, err
			}
			return Outcome{
				Message: "Dispute filed",
				Data:    d,
				Audit:   map[string]any{"dispute_id": d.ID, "fight_id": fight.ID, "reason": string(d.Reason)},
			}, nil
		})
}

var reviewDisputeOp = Operation{Name: "review_dispute", Class: ratelimit.ClassAdmin, Admin: true, Level: audit.LevelSecurity}

// Review moves a pending dispute into review.
func (s *DisputeService) Review(ctx context.Context, form validation.Form) Result {
	return run(ctx, s.gate, reviewDisputeOp,
		func() (string, error) { return s.validator.Reference(form, "dispute_id") },
		func(ctx context.Context, caller auth.Identity, id string) (Outcome, error) {
			d, err := s.transition(ctx, id, domain.DisputeInReview, func(*domain.Dispute) {})
			if err != nil {
				return Outcome{}, err
			}
			return Outcome{
				Message: "Dispute is now in review",
				Data:    d,
				Audit:   map[string]any{"dispute_id": d.ID},
			}, nil
		})
}

var resolveDisputeOp = Operation{Name: "resolve_dispute", Class: ratelimit.ClassAdmin, Admin: true, Level: audit.LevelSecurity}

// Resolve closes a dispute as resolved or dismissed. Closed disputes never
// reopen.
func (s *DisputeService) Resolve(ctx context.Context, form validation.Form) Result {
	return run(ctx, s.gate, resolveDisputeOp,
		func() (validation.DisputeResolutionInput, error) { return s.validator.DisputeResolution(form) },
		func(ctx context.Context, caller auth.Identity, in validation.DisputeResolutionInput) (Outcome, error) {
			d, err := s.transition(ctx, in.DisputeID, in.Status, func(d *domain.Dispute) {
				at := s.gate.Now()
				d.Resolution = in.Resolution
				d.AdminNotes = in.AdminNotes
				d.ResolvedBy = caller.UserID
				d.ResolvedAt = &at
			})
			if err != nil {
				return Outcome{}, err
			}
			return Outcome{
				Message: "Dispute " + string(d.Status),
				Data:    d,
				Audit:   map[string]any{"dispute_id": d.ID, "status": string(d.Status)},
			}, nil
		})
}

func (s *DisputeService) transition(ctx context.Context, id string, next domain.DisputeStatus, mutate func(*domain.Dispute)) (*domain.Dispute, error) {
	d, err := s.disputes.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "Dispute not found")
	}
	if !d.Status.CanTransitionTo(next) {
		return nil, apperr.New(apperr.CodeConflict, "This dispute can no longer be moved to "+string(next))
	}

	prior := d.Status
	d.Status = next
	mutate(d)
	if err := s.disputes.Transition(ctx, d, prior); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return nil, apperr.Wrap(apperr.CodeConflict, "This dispute was updated by someone else", err)
		}
		return nil, err
	}
	return d, nil
}

// List is the admin review queue.
func (s *DisputeService) List(ctx context.Context, status string, limit int) ([]domain.Dispute, error) {
	caller, ok := auth.IdentityFrom(ctx)
	if !ok {
		return nil, apperr.New(apperr.CodeUnauthenticated, "Please sign in to continue")
	}
	if !caller.IsAdmin() {
		return nil, apperr.New(apperr.CodeForbidden, "You do not have permission to do that")
	}

	var filter domain.DisputeStatus
	if status != "" {
		parsed, err := domain.ParseDisputeStatus(status)
		if err != nil {
			return nil, apperr.Invalid(map[string]string{"status": err.Error()})
		}
		filter = parsed
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	disputes, err := s.disputes.List(ctx, filter, limit)
	if err != nil {
		return nil, readError(s.logger, err, "")
	}
	return disputes, nil
}
