package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tantalus-boxing/internal/apperr"
	"tantalus-boxing/internal/config"
	"tantalus-boxing/internal/constants"
	"tantalus-boxing/internal/middleware"
	"tantalus-boxing/internal/service"
	"tantalus-boxing/internal/validation"
)

// ActionHandler adapts form posts to the action services.
type ActionHandler struct {
	auth        *service.AuthService
	fighters    *service.FighterService
	fights      *service.FightService
	matchmaking *service.MatchmakingService
	tournaments *service.TournamentService
	media       *service.MediaService
	camps       *service.CampService
	disputes    *service.DisputeService
	dashboard   *service.DashboardService
	cfg         *config.Config
	logger      zerolog.Logger
}

func NewActionHandler(
	auth *service.AuthService,
	fighters *service.FighterService,
	fights *service.FightService,
	matchmaking *service.MatchmakingService,
	tournaments *service.TournamentService,
	media *service.MediaService,
	camps *service.CampService,
	disputes *service.DisputeService,
	dashboard *service.DashboardService,
	cfg *config.Config,
	logger zerolog.Logger,
) *ActionHandler {
	return &ActionHandler{
		auth:        auth,
		fighters:    fighters,
		fights:      fights,
		matchmaking: matchmaking,
		tournaments: tournaments,
		media:       media,
		camps:       camps,
		disputes:    disputes,
		dashboard:   dashboard,
		cfg:         cfg,
		logger:      logger,
	}
}

type formAction func(ctx context.Context, form validation.Form) service.Result

// form decodes a urlencoded or multipart body and runs action on it.
func form(action formAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := parseForm(r)
		if err != nil {
			middleware.WriteResult(w, service.Fail(err))
			return
		}
		middleware.WriteResult(w, action(r.Context(), f))
	}
}

func parseForm(r *http.Request) (validation.Form, error) {
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(constants.MaxMultipartMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidInput, "The submitted form could not be read", err)
	}

	f := make(validation.Form, len(r.Form))
	for key := range r.Form {
		f[key] = r.Form.Get(key)
	}
	return f, nil
}

func (h *ActionHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, h.auth.SignUp)
}

func (h *ActionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, h.auth.SignIn)
}

// withSession runs an auth action and stores the issued token in the
// session cookie.
func (h *ActionHandler) withSession(w http.ResponseWriter, r *http.Request, action formAction) {
	f, err := parseForm(r)
	if err != nil {
		middleware.WriteResult(w, service.Fail(err))
		return
	}
	res := action(r.Context(), f)
	if session, ok := res.Data.(service.Session); ok && res.Success {
		h.setSessionCookie(w, session.Token, session.ExpiresAt)
	}
	middleware.WriteResult(w, res)
}

func (h *ActionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.setSessionCookie(w, "", time.Unix(0, 0))
	middleware.WriteResult(w, h.auth.SignOut(r.Context()))
}

func (h *ActionHandler) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	c := &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cfg.ProductionLike(),
		SameSite: http.SameSiteLaxMode,
	}
	if token == "" {
		c.MaxAge = -1
	}
	http.SetCookie(w, c)
}

// UploadMedia caps the body before parsing so an oversized upload is
// refused without being buffered.
func (h *ActionHandler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadBytes+constants.MaxMultipartMemory)

	if err := r.ParseMultipartForm(constants.MaxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteResult(w, service.Fail(apperr.Invalid(map[string]string{
				"file": fmt.Sprintf("file exceeds the %dMB limit", constants.MaxUploadBytes>>20),
			})))
			return
		}
		middleware.WriteResult(w, service.Fail(apperr.Wrap(apperr.CodeInvalidInput, "The submitted form could not be read", err)))
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			h.logger.Debug().Err(err).Msg("failed to remove multipart temp files")
		}
	}()

	f := make(validation.Form, len(r.MultipartForm.Value))
	for key, values := range r.MultipartForm.Value {
		if len(values) > 0 {
			f[key] = values[0]
		}
	}

	var file *validation.FileInput
	if headers := r.MultipartForm.File["file"]; len(headers) > 0 {
		file = fileInput(headers[0])
	}
	middleware.WriteResult(w, h.media.Upload(r.Context(), f, file))
}

func fileInput(fh *multipart.FileHeader) *validation.FileInput {
	return &validation.FileInput{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// ListDisputes serves the admin review queue.
func (h *ActionHandler) ListDisputes(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	disputes, err := h.disputes.List(r.Context(), r.URL.Query().Get("status"), limit)
	if err != nil {
		middleware.WriteResult(w, service.Fail(err))
		return
	}
	middleware.WriteResult(w, service.OK("", disputes))
}

func (h *ActionHandler) MyProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.fighters.MyProfile(r.Context())
	if err != nil {
		middleware.WriteResult(w, service.Fail(err))
		return
	}
	middleware.WriteResult(w, service.OK("", profile))
}

func (h *ActionHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.dashboard.Load(r.Context())
	if err != nil {
		middleware.WriteResult(w, service.Fail(err))
		return
	}
	middleware.WriteResult(w, service.OK("", dash))
}
