package fx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"tantalus-boxing/internal/api"
	"tantalus-boxing/internal/audit"
	"tantalus-boxing/internal/auth"
	"tantalus-boxing/internal/config"
	"tantalus-boxing/internal/database"
	"tantalus-boxing/internal/logger"
	"tantalus-boxing/internal/metrics"
	"tantalus-boxing/internal/ratelimit"
	"tantalus-boxing/internal/repository"
	"tantalus-boxing/internal/server"
	"tantalus-boxing/internal/service"
	"tantalus-boxing/internal/validation"
)

func ProvideValidator() *validation.Validator {
	return validation.New(time.Now)
}

func ProvideLimiter(client *redis.Client, logger zerolog.Logger, m *metrics.Metrics) *ratelimit.Limiter {
	return ratelimit.NewLimiter(ratelimit.NewRedisStore(client), logger, m)
}

// RegisterHooks ties the audit worker and the counter store to the app
// lifecycle. The sink stops first so queued events still go out.
func RegisterHooks(lc fx.Lifecycle, sink *audit.Sink, client *redis.Client, logger zerolog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			sink.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := sink.Stop(ctx); err != nil {
				logger.Warn().Err(err).Int64("dropped", sink.Dropped()).Msg("audit sink did not drain")
			}
			return client.Close()
		},
	})
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	fx.Provide(database.NewRedis),
	fx.Provide(metrics.New),
	// repos
	fx.Provide(repository.NewUserRepository),
	fx.Provide(repository.NewFighterRepository),
	fx.Provide(repository.NewFightRepository),
	fx.Provide(repository.NewMatchmakingRepository),
	fx.Provide(repository.NewTournamentRepository),
	fx.Provide(repository.NewMediaRepository),
	fx.Provide(repository.NewCampRepository),
	fx.Provide(repository.NewDisputeRepository),
	// api clients
	fx.Provide(fx.Annotate(api.NewObjectStoreClient, fx.As(new(service.ObjectStore)))),
	fx.Provide(api.NewLogStoreClient),
	// cross-cutting
	fx.Provide(audit.NewSink),
	fx.Provide(auth.NewTokenIssuer),
	fx.Provide(ProvideValidator),
	fx.Provide(ProvideLimiter),
	fx.Provide(service.NewGate),
	// svc
	fx.Provide(service.NewAuthService),
	fx.Provide(service.NewFighterService),
	fx.Provide(service.NewFightService),
	fx.Provide(service.NewMatchmakingService),
	fx.Provide(service.NewTournamentService),
	fx.Provide(service.NewMediaService),
	fx.Provide(service.NewCampService),
	fx.Provide(service.NewDisputeService),
	fx.Provide(service.NewDashboardService),
	// server
	fx.Provide(server.NewActionHandler),
	fx.Provide(server.NewLeagueServer),
	fx.Provide(server.NewRouter),
	fx.Invoke(RegisterHooks),
)
