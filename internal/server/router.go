package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tantalus-boxing/internal/auth"
	"tantalus-boxing/internal/config"
	"tantalus-boxing/internal/constants"
	"tantalus-boxing/internal/metrics"
	"tantalus-boxing/internal/middleware"
	"tantalus-boxing/internal/ratelimit"
)

// NewRouter assembles the HTTP surface. Auth actions are limited inside the
// action gate, so their routes carry no limiter of their own. Proxy headers
// are trusted only from cfg's trusted proxies.
func NewRouter(
	actions *ActionHandler,
	league *LeagueServer,
	tokens *auth.TokenIssuer,
	limiter *ratelimit.Limiter,
	m *metrics.Metrics,
	db *sql.DB,
	rdb *redis.Client,
	cfg *config.Config,
	logger zerolog.Logger,
) (http.Handler, error) {
	trusted, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID(logger))
	r.Use(middleware.ClientIP(trusted))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Session(tokens))

	r.Get("/health", health(db, rdb))
	r.Handle("/metrics", m.Handler())

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", actions.SignUp)
		r.Post("/signin", actions.SignIn)
		r.Post("/signout", actions.SignOut)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(limiter, ratelimit.ClassAPI))
		r.Use(middleware.RequireAuth)

		r.Get("/api/fighter-profile", actions.MyProfile)
		r.Post("/api/fighter-profile", form(actions.fighters.CreateProfile))
		r.Post("/api/fighter-profile/update", form(actions.fighters.UpdateProfile))
		r.Post("/api/fight-records", form(actions.fights.CreateFightRecord))
		r.Post("/api/matchmaking", form(actions.matchmaking.Request))
		r.Post("/api/matchmaking/cancel", form(actions.matchmaking.Cancel))
		r.Post("/api/tournaments", form(actions.tournaments.Create))
		r.Post("/api/tournaments/join", form(actions.tournaments.Join))
		r.Post("/api/media", actions.UploadMedia)
		r.Post("/api/training-camps", form(actions.camps.Create))
		r.Post("/api/disputes", form(actions.disputes.File))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.RateLimit(limiter, ratelimit.ClassAdmin))
		r.Use(middleware.RequireAdmin)

		r.Post("/fighters/tier", form(actions.fighters.ChangeTier))
		r.Post("/media/moderate", form(actions.media.Moderate))
		r.Get("/disputes", actions.ListDisputes)
		r.Post("/disputes/review", form(actions.disputes.Review))
		r.Post("/disputes/resolve", form(actions.disputes.Resolve))
	})

	r.With(middleware.RateLimit(limiter, ratelimit.ClassAPI)).
		Handle(LeagueServicePath+"*", league.Handler())

	r.With(middleware.RedirectToLogin).Get("/dashboard", actions.Dashboard)

	return r, nil
}

// health reports ready only when the database answers. The counter store is
// reported but does not fail the check, since limits degrade by policy.
func health(db *sql.DB, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), constants.DatabaseTimeout)
		defer cancel()

		status := map[string]string{"status": "ok", "database": "ok", "redis": "ok"}
		code := http.StatusOK
		if err := db.PingContext(ctx); err != nil {
			status["status"], status["database"] = "unavailable", "unreachable"
			code = http.StatusServiceUnavailable
		}
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				status["redis"] = "unreachable"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	}
}
