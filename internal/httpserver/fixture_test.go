package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/restaurant_admin/internal/metrics"
	"github.com/Skotchmaster/restaurant_admin/internal/models"
	"github.com/Skotchmaster/restaurant_admin/internal/oauth"
	"github.com/Skotchmaster/restaurant_admin/internal/repo"
	"github.com/Skotchmaster/restaurant_admin/internal/service"
	"github.com/Skotchmaster/restaurant_admin/pkg/backend"
	"github.com/Skotchmaster/restaurant_admin/pkg/db"
	"github.com/Skotchmaster/restaurant_admin/pkg/middleware/csrf"
	"github.com/Skotchmaster/restaurant_admin/pkg/tokens"
)

const origin = "http://example.com"

// fakeAPI stands in for the restaurant REST API.
type fakeAPI struct {
	mu           sync.Mutex
	clock        func() time.Time
	failRefresh  bool
	refreshCalls int
	lastAuth     string
	lastCookie   string
	lastPath     string
}

func (f *fakeAPI) access(t time.Time) string {
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(t.Add(15 * time.Minute)),
	}).SignedString([]byte("backend-only-key"))
	return tok
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case "/auth/signin":
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
			Provider string `json:"provider"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		role := strings.SplitN(req.Email, "@", 2)[0]
		switch {
		case role == "unverified":
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"message":"email not verified"}`))
			return
		case req.Provider == "" && req.Password != "secret":
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(backend.SignInResponse{
			User: models.User{
				ID:              "42",
				Firstname:       "Ann",
				Lastname:        "Lee",
				Email:           req.Email,
				IsVerified:      true,
				RestaurantUsers: []models.RestaurantUser{{RestaurantID: "r1", Role: role}},
			},
			AccessToken:  f.access(f.clock()),
			RefreshToken: "refresh-1",
		})
	case "/auth/refresh":
		f.refreshCalls++
		if f.failRefresh {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(backend.TokenPair{AccessToken: f.access(f.clock()), RefreshToken: "refresh-2"})
	default:
		f.lastAuth = r.Header.Get("Authorization")
		f.lastCookie = r.Header.Get("Cookie")
		f.lastPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]string{"path": r.URL.Path})
	}
}

type apiSeen struct {
	refreshCalls int
	auth         string
	cookie       string
	path         string
}

func (f *fakeAPI) seen() apiSeen {
	f.mu.Lock()
	defer f.mu.Unlock()
	return apiSeen{refreshCalls: f.refreshCalls, auth: f.lastAuth, cookie: f.lastCookie, path: f.lastPath}
}

func (f *fakeAPI) setFailRefresh(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failRefresh = v
}

type stubProvider struct{}

func (stubProvider) Name() string { return "stub" }

func (stubProvider) AuthCodeURL(state, _ string) string {
	return "https://idp.example/auth?state=" + url.QueryEscape(state)
}

func (stubProvider) Exchange(_ context.Context, code, verifier string) (*models.Identity, error) {
	if code == "" || verifier == "" {
		return nil, io.ErrUnexpectedEOF
	}
	return &models.Identity{Provider: "stub", Subject: "s-1", Email: code + "@resto.io", Name: "Chef"}, nil
}

type fixture struct {
	t       *testing.T
	e       *echo.Echo
	api     *fakeAPI
	cookies map[string]*http.Cookie

	mu  sync.Mutex
	now time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		t:       t,
		cookies: map[string]*http.Cookie{},
		now:     time.Now().Truncate(time.Second),
	}
	f.api = &fakeAPI{clock: f.clock}
	srv := httptest.NewServer(f.api)
	t.Cleanup(srv.Close)

	gdb, err := db.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })
	revoked := repo.NewGormRepo(gdb)
	require.NoError(t, revoked.Migrate(context.Background()))

	sealer, err := tokens.NewSealer([]byte("test-secret"), 30*24*time.Hour)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	client := backend.NewClient(srv.URL, 5*time.Second)
	svc := &service.AuthService{API: client, Revoked: revoked, Metrics: m}
	sessions := &Sessions{Sealer: sealer, Revoked: revoked, Cookie: "session-token", Now: f.clock}

	target, err := client.ProxyTarget()
	require.NoError(t, err)

	cfg := csrf.DefaultConfig()
	cfg.Secure = false

	f.e = echo.New()
	require.NoError(t, Register(f.e, &Deps{
		Auth: &AuthHTTP{
			Svc:       svc,
			Refresh:   &service.RefreshCoordinator{API: client, Metrics: m, Now: f.clock},
			Sessions:  sessions,
			LoginPath: "/login",
		},
		OAuth: &OAuthHTTP{
			Svc:       svc,
			Providers: oauth.NewRegistry(stubProvider{}),
			Sessions:  sessions,
			LoginPath: "/login",
			HomePath:  "/",
		},
		APITarget:    target,
		APITransport: client.Transport(),
		CSRF:         cfg,
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Ready:        revoked.Ping,
	}))
	return f
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// do sends a request with the stored cookies and the CSRF header, then
// keeps whatever cookies the response sets.
func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	f.t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set("Origin", origin)
	for _, c := range f.cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	if c, ok := f.cookies["XSRF-TOKEN"]; ok {
		req.Header.Set("X-CSRF-Token", c.Value)
	}

	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(f.cookies, c.Name)
			continue
		}
		f.cookies[c.Name] = c
	}
	return rec
}

func (f *fixture) csrf() {
	f.t.Helper()
	rec := f.do(http.MethodGet, "/api/auth/csrf", "")
	require.Equal(f.t, http.StatusOK, rec.Code)
}

func (f *fixture) signIn(email string) *httptest.ResponseRecorder {
	f.t.Helper()
	f.csrf()
	return f.do(http.MethodPost, "/api/auth/callback/credentials", `{"email":"`+email+`","password":"secret"}`)
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) models.Session {
	t.Helper()
	var s models.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	return s
}
