package database

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tantalus-boxing/internal/config"
	"tantalus-boxing/internal/constants"
)

// NewRedis builds the rate-limit counter client. An unreachable server is
// logged and tolerated; each limiter class decides what an outage means.
func NewRedis(cfg *config.Config, logger zerolog.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), constants.DatabaseTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable at startup")
	} else {
		logger.Info().Str("addr", cfg.RedisAddr).Msg("redis connection established")
	}
	return client
}
