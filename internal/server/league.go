package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"

	"tantalus-boxing/internal/apperr"
	"tantalus-boxing/internal/domain"
	"tantalus-boxing/internal/service"
)

const LeagueServicePath = "/league.v1.LeagueService/"

const (
	GetFighterProcedure       = LeagueServicePath + "GetFighter"
	ListFightRecordsProcedure = LeagueServicePath + "ListFightRecords"
	GetRankingsProcedure      = LeagueServicePath + "GetRankings"
	ListTournamentsProcedure  = LeagueServicePath + "ListTournaments"
)

type GetFighterRequest struct {
	ID string `json:"id"`
}

type GetFighterResponse struct {
	Fighter *domain.FighterProfile `json:"fighter"`
}

type ListFightRecordsRequest struct {
	FighterID string `json:"fighter_id"`
	Limit     int    `json:"limit"`
}

type ListFightRecordsResponse struct {
	Fights []domain.FightRecord `json:"fights"`
}

type GetRankingsRequest struct {
	WeightClass string `json:"weight_class"`
	Limit       int    `json:"limit"`
}

type GetRankingsResponse struct {
	Fighters []domain.FighterProfile `json:"fighters"`
}

type ListTournamentsRequest struct {
	Status string `json:"status"`
	Limit  int    `json:"limit"`
}

type ListTournamentsResponse struct {
	Tournaments []domain.Tournament `json:"tournaments"`
}

// LeagueServer is the public read API.
type LeagueServer struct {
	fighters    *service.FighterService
	fights      *service.FightService
	tournaments *service.TournamentService
	logger      zerolog.Logger
}

func NewLeagueServer(
	fighters *service.FighterService,
	fights *service.FightService,
	tournaments *service.TournamentService,
	logger zerolog.Logger,
) *LeagueServer {
	return &LeagueServer{fighters: fighters, fights: fights, tournaments: tournaments, logger: logger}
}

func (s *LeagueServer) GetFighter(ctx context.Context, req *connect.Request[GetFighterRequest]) (*connect.Response[GetFighterResponse], error) {
	fighter, err := s.fighters.GetFighter(ctx, req.Msg.ID)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&GetFighterResponse{Fighter: fighter}), nil
}

func (s *LeagueServer) ListFightRecords(ctx context.Context, req *connect.Request[ListFightRecordsRequest]) (*connect.Response[ListFightRecordsResponse], error) {
	fights, err := s.fights.ListFightRecords(ctx, req.Msg.FighterID, req.Msg.Limit)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&ListFightRecordsResponse{Fights: fights}), nil
}

func (s *LeagueServer) GetRankings(ctx context.Context, req *connect.Request[GetRankingsRequest]) (*connect.Response[GetRankingsResponse], error) {
	fighters, err := s.fighters.Rankings(ctx, req.Msg.WeightClass, req.Msg.Limit)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&GetRankingsResponse{Fighters: fighters}), nil
}

func (s *LeagueServer) ListTournaments(ctx context.Context, req *connect.Request[ListTournamentsRequest]) (*connect.Response[ListTournamentsResponse], error) {
	tournaments, err := s.tournaments.List(ctx, req.Msg.Status, req.Msg.Limit)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&ListTournamentsResponse{Tournaments: tournaments}), nil
}

// Handler mounts every procedure under LeagueServicePath.
func (s *LeagueServer) Handler() http.Handler {
	opts := []connect.HandlerOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithInterceptors(s.logCalls()),
	}

	mux := http.NewServeMux()
	mux.Handle(GetFighterProcedure, connect.NewUnaryHandler(GetFighterProcedure, s.GetFighter, opts...))
	mux.Handle(ListFightRecordsProcedure, connect.NewUnaryHandler(ListFightRecordsProcedure, s.ListFightRecords, opts...))
	mux.Handle(GetRankingsProcedure, connect.NewUnaryHandler(GetRankingsProcedure, s.GetRankings, opts...))
	mux.Handle(ListTournamentsProcedure, connect.NewUnaryHandler(ListTournamentsProcedure, s.ListTournaments, opts...))
	return mux
}

func (s *LeagueServer) logCalls() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			res, err := next(ctx, req)

			log := zerolog.Ctx(ctx)
			if log.GetLevel() == zerolog.Disabled {
				log = &s.logger
			}
			ev := log.Debug()
			if err != nil {
				ev = ev.Err(err).Str("code", connect.CodeOf(err).String())
			}
			ev.Str("procedure", req.Spec().Procedure).
				Dur("took", time.Since(start)).
				Msg("league rpc")
			return res, err
		}
	}
}

// connectError maps a domain error to the closest connect code. The message
// is the caller-safe one; causes stay in the logs.
func connectError(err error) error {
	e := apperr.From(err)
	code := connect.CodeInternal
	switch e.Code {
	case apperr.CodeInvalidInput:
		code = connect.CodeInvalidArgument
	case apperr.CodeNotFound:
		code = connect.CodeNotFound
	case apperr.CodeUnauthenticated:
		code = connect.CodeUnauthenticated
	case apperr.CodeForbidden:
		code = connect.CodePermissionDenied
	case apperr.CodeRateLimited:
		code = connect.CodeResourceExhausted
	case apperr.CodeConflict:
		code = connect.CodeAlreadyExists
	case apperr.CodeTimeout:
		code = connect.CodeDeadlineExceeded
	}

	cerr := connect.NewError(code, errors.New(e.Message))
	for field, msg := range e.Fields {
		cerr.Meta().Set("X-Field-"+field, msg)
	}
	return cerr
}
