package service

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"tantalus-boxing/internal/apperr"
	"tantalus-boxing/internal/auth"
	"tantalus-boxing/internal/constants"
	"tantalus-boxing/internal/domain"
	"tantalus-boxing/internal/repository"
)

type Dashboard struct {
	Fighter      *domain.FighterProfile      `json:"fighter"`
	RecentFights []domain.FightRecord        `json:"recent_fights"`
	Matchmaking  []domain.MatchmakingRequest `json:"matchmaking"`
	Camps        []domain.TrainingCamp       `json:"camps"`
	Media        []domain.MediaAsset         `json:"media"`
}

type DashboardService struct {
	fighters    *repository.FighterRepository
	fights      *repository.FightRepository
	matchmaking *repository.MatchmakingRepository
	camps       *repository.CampRepository
	media       *repository.MediaRepository
	logger      zerolog.Logger
}

func NewDashboardService(
	fighters *repository.FighterRepository,
	fights *repository.FightRepository,
	matchmaking *repository.MatchmakingRepository,
	camps *repository.CampRepository,
	media *repository.MediaRepository,
	logger zerolog.Logger,
) *DashboardService {
	return &DashboardService{
		fighters:    fighters,
		fights:      fights,
		matchmaking: matchmaking,
		camps:       camps,
		media:       media,
		logger:      logger,
	}
}

// Load assembles the caller's dashboard. Everything after the profile lookup
// is fetched concurrently.
func (s *DashboardService) Load(ctx context.Context) (*Dashboard, error) {
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

	dash := &Dashboard{Fighter: profile}
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		dash.RecentFights, err = s.fights.ListByFighter(gCtx, profile.ID, constants.RecentFightsLimit)
		return err
	})

	g.Go(func() error {
		var err error
		dash.Matchmaking, err = s.matchmaking.ListByFighter(gCtx, profile.ID, domain.MatchmakingPending)
		return err
	})

	g.Go(func() error {
		var err error
		dash.Camps, err = s.camps.ListByFighter(gCtx, profile.ID, constants.DefaultListLimit)
		return err
	})

	g.Go(func() error {
		var err error
		dash.Media, err = s.media.ListByFighter(gCtx, profile.ID, constants.DefaultListLimit)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, readError(s.logger, err, "")
	}
	return dash, nil
}
