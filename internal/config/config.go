package config

import (
	"fmt"
	"net/netip"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv     string `env:"APP_ENV" envDefault:"development"`

	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite3"`
	DBDSN    string `env:"DB_DSN" envDefault:"league.db"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret  string        `env:"JWT_SECRET"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	ObjectStoreURL string `env:"OBJECT_STORE_URL" envDefault:"http://localhost:5000/storage/v1"`
	ObjectStoreKey string `env:"OBJECT_STORE_KEY"`
	MediaBucket    string `env:"MEDIA_BUCKET" envDefault:"fighter-media"`

	LogStoreURL string `env:"LOG_STORE_URL"`
	LogStoreKey string `env:"LOG_STORE_KEY"`

	AdminEmails []string `env:"ADMIN_EMAILS" envSeparator:","`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	// TrustedProxies lists the CIDRs or addresses whose forwarding headers
	// name the real client. Empty means the peer address is always used.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger.Info().
		Str("app_env", cfg.AppEnv).
		Str("db_driver", cfg.DBDriver).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("redis_addr", cfg.RedisAddr).
		Dur("session_ttl", cfg.SessionTTL).
		Bool("log_forwarding", cfg.LogStoreURL != "").
		Msg("configuration loaded")

	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	switch c.DBDriver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		return err
	}
	switch c.AppEnv {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("unsupported APP_ENV %q", c.AppEnv)
	}
	return nil
}

// ProductionLike reports whether non-security audit events are forwarded.
func (c *Config) ProductionLike() bool {
	return c.AppEnv == "staging" || c.AppEnv == "production"
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address is treated as a
// single-host prefix.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", raw, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", raw, err)
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return prefixes, nil
}

func (c *Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	return slices.ContainsFunc(c.AdminEmails, func(admin string) bool {
		return strings.ToLower(strings.TrimSpace(admin)) == email
	})
}
