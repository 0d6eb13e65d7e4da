package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tantalus-boxing/internal/api"
	"tantalus-boxing/internal/apperr"
	"tantalus-boxing/internal/audit"
	"tantalus-boxing/internal/auth"
	"tantalus-boxing/internal/config"
	"tantalus-boxing/internal/constants"
	"tantalus-boxing/internal/domain"
	"tantalus-boxing/internal/metrics"
	"tantalus-boxing/internal/ratelimit"
	"tantalus-boxing/internal/repository"
	"tantalus-boxing/internal/service"
	"tantalus-boxing/internal/testutil"
	"tantalus-boxing/internal/validation"
)

type memoryStore struct{}

func (memoryStore) Upload(_ context.Context, path, _ string, body io.Reader, _ int64) (string, error) {
	_, err := io.Copy(io.Discard, body)
	return "https://cdn.test/" + path, err
}

type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T, opts ...func(*config.Config)) *testServer {
	t.Helper()
	log := zerolog.Nop()
	db := testutil.NewDB(t)
	rdb, _ := testutil.NewRedis(t)
	clock := testutil.NewClock()
	m := metrics.New()

	cfg := &config.Config{JWTSecret: testutil.Secret, SessionTTL: time.Hour, AppEnv: "development"}
	for _, opt := range opts {
		opt(cfg)
	}
	sink := audit.NewSink(cfg, api.NewLogStoreClient(cfg), log)
	limiter := ratelimit.NewLimiter(ratelimit.NewRedisStore(rdb), log, m, ratelimit.WithClock(clock.Now))
	gate := service.NewGate(limiter, sink, m, log)
	v := validation.New(clock.Now)
	tokens := auth.NewTokenIssuer(cfg)

	users := repository.NewUserRepository(db, log)
	fighters := repository.NewFighterRepository(db, log)
	fights := repository.NewFightRepository(db, log)
	requests := repository.NewMatchmakingRepository(db, log)
	tournaments := repository.NewTournamentRepository(db, log)
	media := repository.NewMediaRepository(db, log)
	camps := repository.NewCampRepository(db, log)
	disputes := repository.NewDisputeRepository(db, log)

	fighterSvc := service.NewFighterService(gate, v, fighters, log)
	fightSvc := service.NewFightService(gate, v, fighters, fights, log)
	tournamentSvc := service.NewTournamentService(gate, v, fighters, tournaments, log)

	actions := NewActionHandler(
		service.NewAuthService(gate, v, users, tokens, cfg, sink, log),
		fighterSvc,
		fightSvc,
		service.NewMatchmakingService(gate, v, fighters, requests, log),
		tournamentSvc,
		service.NewMediaService(gate, v, fighters, media, memoryStore{}, log),
		service.NewCampService(gate, v, fighters, camps, log),
		service.NewDisputeService(gate, v, fighters, fights, disputes, log),
		service.NewDashboardService(fighters, fights, requests, camps, media, log),
		cfg,
		log,
	)
	league := NewLeagueServer(fighterSvc, fightSvc, tournamentSvc, log)

	router, err := NewRouter(actions, league, tokens, limiter, m, db, rdb, cfg, log)
	require.NoError(t, err)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv}
}

// client returns an HTTP client that keeps cookies and never follows
// redirects.
func (s *testServer) client() *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (s *testServer) post(t *testing.T, c *http.Client, path string, values url.Values) (*http.Response, service.Result) {
	t.Helper()
	resp, err := c.PostForm(s.URL+path, values)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp, decode(t, resp.Body)
}

func decode(t *testing.T, r io.Reader) service.Result {
	t.Helper()
	var res service.Result
	require.NoError(t, json.NewDecoder(r).Decode(&res))
	return res
}

func (s *testServer) signUp(t *testing.T, c *http.Client, email string) {
	t.Helper()
	resp, res := s.post(t, c, "/api/auth/signup", url.Values{
		"email": {email}, "password": {"long-enough-pw"}, "confirm_password": {"long-enough-pw"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "%+v", res)
}

func profileValues(name string) url.Values {
	return url.Values{
		"name": {name}, "birthday": {"1995-03-03"}, "height_cm": {"180"}, "weight_kg": {"70"},
		"reach_cm": {"182"}, "stance": {"Orthodox"}, "weight_class": {"Lightweight"}, "country": {"Ghana"},
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	resp, err := http.Get(s.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["redis"])
}

func TestSessionCookieFlow(t *testing.T) {
	s := newTestServer(t)
	c := s.client()

	resp, res := s.post(t, c, "/api/fighter-profile", profileValues("Kofi Mensah"))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, apperr.CodeUnauthenticated, res.Code)

	s.signUp(t, c, "kofi@example.com")

	resp, res = s.post(t, c, "/api/fighter-profile", profileValues("Kofi Mensah"))
	require.Equal(t, http.StatusOK, resp.StatusCode, "%+v", res)
	assert.Equal(t, "Fighter profile created", res.Message)

	dash, err := c.Get(s.URL + "/dashboard")
	require.NoError(t, err)
	defer dash.Body.Close()
	assert.Equal(t, http.StatusOK, dash.StatusCode)
	assert.True(t, decode(t, dash.Body).Success)

	resp, _ = s.post(t, c, "/api/auth/signout", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	dash, err = c.Get(s.URL + "/dashboard")
	require.NoError(t, err)
	defer dash.Body.Close()
	assert.Equal(t, http.StatusSeeOther, dash.StatusCode)
	assert.Equal(t, "/login?next=%2Fdashboard", dash.Header.Get("Location"))
}

func TestInvalidFormReturnsFieldDetails(t *testing.T) {
	s := newTestServer(t)
	c := s.client()
	s.signUp(t, c, "sloppy@example.com")

	values := profileValues("X")
	values.Set("stance", "Sideways")
	resp, res := s.post(t, c, "/api/fighter-profile", values)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, apperr.CodeInvalidInput, res.Code)
	assert.Contains(t, res.Details, "name")
	assert.Contains(t, res.Details, "stance")
}

func TestAdminRoutesNeedAdminRole(t *testing.T) {
	s := newTestServer(t)
	c := s.client()
	s.signUp(t, c, "plain@example.com")

	resp, res := s.post(t, c, "/api/admin/disputes/review", url.Values{"dispute_id": {"d1"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, apperr.CodeForbidden, res.Code)
}

func TestAuthAttemptsCountOncePerRequest(t *testing.T) {
	s := newTestServer(t)
	c := s.client()
	bad := url.Values{"email": {"who@example.com"}, "password": {"nope"}}

	for i := 0; i < 5; i++ {
		resp, _ := s.post(t, c, "/api/auth/signin", bad)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "attempt %d", i+1)
	}
	resp, res := s.post(t, c, "/api/auth/signin", bad)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, 900, res.RetryAfter)
	assert.Equal(t, "900", resp.Header.Get("Retry-After"))
}

func (s *testServer) postFrom(t *testing.T, c *http.Client, path, forwardedFor string, values url.Values) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, s.URL+path, strings.NewReader(values.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	req.Header.Set("X-Real-IP", forwardedFor)
	req.Header.Set("True-Client-IP", forwardedFor)
	resp, err := c.Do(req)
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp
}

func TestForwardingHeadersIgnoredFromUntrustedPeer(t *testing.T) {
	s := newTestServer(t)
	c := s.client()
	bad := url.Values{"email": {"who@example.com"}, "password": {"nope"}}

	var codes []int
	for i := 1; i <= 6; i++ {
		resp := s.postFrom(t, c, "/api/auth/signin", fmt.Sprintf("203.0.113.%d", i), bad)
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{401, 401, 401, 401, 401, 429}, codes)
}

func TestForwardingHeadersHonouredFromTrustedProxy(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.TrustedProxies = []string{"127.0.0.0/8", "::1"}
	})
	c := s.client()
	bad := url.Values{"email": {"who@example.com"}, "password": {"nope"}}

	for i := 1; i <= 6; i++ {
		resp := s.postFrom(t, c, "/api/auth/signin", fmt.Sprintf("203.0.113.%d", i), bad)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "client %d", i)
	}
	for i := 0; i < 5; i++ {
		s.postFrom(t, c, "/api/auth/signin", "198.51.100.1", bad)
	}
	resp := s.postFrom(t, c, "/api/auth/signin", "198.51.100.1", bad)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestMultipartUpload(t *testing.T) {
	s := newTestServer(t)
	c := s.client()
	s.signUp(t, c, "shooter@example.com")
	resp, _ := s.post(t, c, "/api/fighter-profile", profileValues("Camera Shy"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("title", "Weigh-in"))
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="weigh-in.png"`)
	header.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(png)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, s.URL+"/api/media", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err = c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	res := decode(t, resp.Body)
	require.Equal(t, http.StatusOK, resp.StatusCode, "%+v", res)
	data := res.Data.(map[string]any)
	assert.Equal(t, "pending", data["status"])
	assert.True(t, strings.HasSuffix(data["url"].(string), ".png"))
}

func TestLeagueReadAPI(t *testing.T) {
	s := newTestServer(t)
	c := s.client()
	s.signUp(t, c, "reader@example.com")
	_, res := s.post(t, c, "/api/fighter-profile", profileValues("Read Me"))
	require.True(t, res.Success, "%+v", res)
	fighterID := res.Data.(map[string]any)["id"].(string)

	getFighter := connect.NewClient[GetFighterRequest, GetFighterResponse](
		http.DefaultClient, s.URL+GetFighterProcedure, connect.WithCodec(jsonCodec{}))
	out, err := getFighter.CallUnary(context.Background(), connect.NewRequest(&GetFighterRequest{ID: fighterID}))
	require.NoError(t, err)
	assert.Equal(t, "Read Me", out.Msg.Fighter.Name)
	assert.Equal(t, domain.TierAmateur, out.Msg.Fighter.Tier)

	_, err = getFighter.CallUnary(context.Background(), connect.NewRequest(&GetFighterRequest{ID: "missing"}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	rankings := connect.NewClient[GetRankingsRequest, GetRankingsResponse](
		http.DefaultClient, s.URL+GetRankingsProcedure, connect.WithCodec(jsonCodec{}))
	ranked, err := rankings.CallUnary(context.Background(), connect.NewRequest(&GetRankingsRequest{WeightClass: "Lightweight"}))
	require.NoError(t, err)
	require.Len(t, ranked.Msg.Fighters, 1)

	_, err = rankings.CallUnary(context.Background(), connect.NewRequest(&GetRankingsRequest{WeightClass: "Paperweight"}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	tournaments := connect.NewClient[ListTournamentsRequest, ListTournamentsResponse](
		http.DefaultClient, s.URL+ListTournamentsProcedure, connect.WithCodec(jsonCodec{}))
	listed, err := tournaments.CallUnary(context.Background(), connect.NewRequest(&ListTournamentsRequest{}))
	require.NoError(t, err)
	assert.Empty(t, listed.Msg.Tournaments)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	c := s.client()
	s.signUp(t, c, "metered@example.com")

	resp, err := http.Get(s.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `league_actions_total{operation="sign_up",outcome="ok"} 1`)
}

func TestSessionCookieAttributes(t *testing.T) {
	s := newTestServer(t)
	resp, err := http.PostForm(s.URL+"/api/auth/signup", url.Values{
		"email": {"cookie@example.com"}, "password": {"long-enough-pw"}, "confirm_password": {"long-enough-pw"},
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == constants.SessionCookieName {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, session.SameSite)
	assert.NotEmpty(t, session.Value)
}
