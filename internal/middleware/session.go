package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"tantalus-boxing/internal/apperr"
	"tantalus-boxing/internal/auth"
	"tantalus-boxing/internal/constants"
	"tantalus-boxing/internal/service"
)

// TokenParser turns a session token into the identity it was issued for.
type TokenParser interface {
	Parse(token string) (auth.Identity, error)
}

// Session resolves the caller from a bearer token or the session cookie. A
// missing or invalid token leaves the request anonymous.
func Session(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := tokens.Parse(token)
			if err != nil {
				zerolog.Ctx(r.Context()).Debug().Err(err).Msg("ignoring invalid session token")
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(constants.SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

// RequireAuth answers 401 with an error envelope when nobody is signed in.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.IdentityFrom(r.Context()); !ok {
			WriteResult(w, service.Fail(apperr.New(apperr.CodeUnauthenticated, "Please sign in to continue")))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin answers 403 for signed-in callers without the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.IdentityFrom(r.Context())
		if !id.IsAdmin() {
			WriteResult(w, service.Fail(apperr.New(apperr.CodeForbidden, "You do not have permission to do that")))
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// RedirectToLogin sends anonymous page requests to the login page, keeping
// the original path so the client can come back to it.
func RedirectToLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.IdentityFrom(r.Context()); !ok {
			target := constants.LoginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
