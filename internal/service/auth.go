package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"tantalus-boxing/internal/apperr"
	"tantalus-boxing/internal/audit"
	"tantalus-boxing/internal/auth"
	"tantalus-boxing/internal/config"
	"tantalus-boxing/internal/domain"
	"tantalus-boxing/internal/ratelimit"
	"tantalus-boxing/internal/repository"
	"tantalus-boxing/internal/validation"
)

type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	UserID    string      `json:"user_id"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
}

type AuthService struct {
	gate      *Gate
	validator *validation.Validator
	users     *repository.UserRepository
	tokens    *auth.TokenIssuer
	cfg       *config.Config
	sink      *audit.Sink
	logger    zerolog.Logger
}

func NewAuthService(
	gate *Gate,
	validator *validation.Validator,
	users *repository.UserRepository,
	tokens *auth.TokenIssuer,
	cfg *config.Config,
	sink *audit.Sink,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		gate:      gate,
		validator: validator,
		users:     users,
		tokens:    tokens,
		cfg:       cfg,
		sink:      sink,
		logger:    logger,
	}
}

var signUpOp = Operation{Name: "sign_up", Class: ratelimit.ClassAuth, Public: true, Level: audit.LevelSecurity}

func (s *AuthService) SignUp(ctx context.Context, form validation.Form) Result {
	return run(ctx, s.gate, signUpOp,
		func() (validation.SignUpInput, error) { return s.validator.SignUp(form) },
		func(ctx context.Context, _ auth.Identity, in validation.SignUpInput) (Outcome, error) {
			hash, err := auth.HashPassword(in.Password)
			if err != nil {
				return Outcome{}, apperr.Wrap(apperr.CodeUnexpected, "An unexpected error occurred", err)
			}

			role := domain.RoleUser
			if s.cfg.IsAdminEmail(in.Email) {
				role = domain.RoleAdmin
			}
			user := &domain.User{Email: in.Email, PasswordHash: hash, Role: role, CreatedAt: s.gate.Now()}

			if err := s.users.Create(ctx, user); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return Outcome{}, apperr.Wrap(apperr.CodeConflict, "An account with this email already exists", err)
				}
				return Outcome{}, err
			}

			session, err := s.session(*user)
			if err != nil {
				return Outcome{}, err
			}
			return Outcome{
				Message: "Account created",
				Data:    session,
				Audit:   map[string]any{"user_id": user.ID, "ip": ClientIP(ctx), "role": string(role)},
			}, nil
		})
}

var signInOp = Operation{Name: "sign_in", Class: ratelimit.ClassAuth, Public: true, Level: audit.LevelSecurity}

func (s *AuthService) SignIn(ctx context.Context, form validation.Form) Result {
	return run(ctx, s.gate, signInOp,
		func() (validation.SignInInput, error) { return s.validator.SignIn(form) },
		func(ctx context.Context, _ auth.Identity, in validation.SignInInput) (Outcome, error) {
			invalid := apperr.New(apperr.CodeUnauthenticated, "Invalid email or password")

			user, err := s.users.GetByEmail(ctx, in.Email)
			if errors.Is(err, repository.ErrNotFound) {
				auth.CheckPasswordAgainstNothing(in.Password)
				s.failedSignIn(ctx, in.Email, "unknown email")
				return Outcome{}, invalid
			}
			if err != nil {
				return Outcome{}, err
			}

			ok, err := auth.CheckPassword(user.PasswordHash, in.Password)
			if err != nil {
				return Outcome{}, apperr.Wrap(apperr.CodeUnexpected, "An unexpected error occurred", err)
			}
			if !ok {
				s.failedSignIn(ctx, in.Email, "wrong password")
				return Outcome{}, invalid
			}

			session, err := s.session(*user)
			if err != nil {
				return Outcome{}, err
			}
			return Outcome{
				Message: "Signed in",
				Data:    session,
				Audit:   map[string]any{"user_id": user.ID, "ip": ClientIP(ctx)},
			}, nil
		})
}

// SignOut only records the event; the session cookie is cleared by the
// transport.
func (s *AuthService) SignOut(ctx context.Context) Result {
	if id, ok := auth.IdentityFrom(ctx); ok {
		s.sink.Security("sign_out", map[string]any{"user_id": id.UserID, "ip": ClientIP(ctx)})
	}
	return OK("Signed out", nil)
}

func (s *AuthService) failedSignIn(ctx context.Context, email, reason string) {
	s.sink.Security("sign in failed", map[string]any{
		"email":  email,
		"reason": reason,
		"ip":     ClientIP(ctx),
	})
}

func (s *AuthService) session(user domain.User) (Session, error) {
	token, expires, err := s.tokens.Issue(user)
	if err != nil {
		return Session{}, apperr.Wrap(apperr.CodeUnexpected, "An unexpected error occurred", err)
	}
	return Session{Token: token, ExpiresAt: expires, UserID: user.ID, Email: user.Email, Role: user.Role}, nil
}
