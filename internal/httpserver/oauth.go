package httpserver

import (
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/oauth2"

	"github.com/Skotchmaster/restaurant_admin/internal/oauth"
	"github.com/Skotchmaster/restaurant_admin/internal/service"
	"github.com/Skotchmaster/restaurant_admin/pkg/logging"
)

const (
	flowCookie     = "oauth-flow"
	flowCookiePath = "/api/auth/callback"
	flowTTL        = 10 * time.Minute
)

type OAuthHTTP struct {
	Svc       *service.AuthService
	Providers *oauth.Registry
	Sessions  *Sessions
	LoginPath string
	HomePath  string
}

type providerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

func (h *OAuthHTTP) List(c echo.Context) error {
	out := map[string]providerInfo{
		"credentials": {ID: "credentials", Name: "Credentials", Type: "credentials"},
	}
	for _, n := range h.Providers.Names() {
		out[n] = providerInfo{ID: n, Name: n, Type: "oauth"}
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OAuthHTTP) SignIn(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "oauth_signin")

	p, err := h.Providers.Get(c.Param("provider"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "unknown provider")
	}

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	flow, err := h.Sessions.Sealer.SealFlow(p.Name(), state, verifier, h.Sessions.now(), flowTTL)
	if err != nil {
		l.Error("oauth_signin_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot start sign in")
	}
	c.SetCookie(CreateCookie(flowCookie, flow, flowCookiePath, h.Sessions.now().Add(flowTTL), h.Sessions.Secure))
	return c.Redirect(http.StatusFound, p.AuthCodeURL(state, verifier))
}

func (h *OAuthHTTP) Callback(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "oauth_callback", "provider", c.Param("provider"))

	ck, err := c.Cookie(flowCookie)
	c.SetCookie(DeleteCookie(flowCookie, flowCookiePath, h.Sessions.Secure))
	if err != nil || ck.Value == "" {
		l.Warn("oauth_callback_rejected", "reason", "missing flow cookie")
		return h.deny(c, service.ReasonAccessDenied)
	}

	flow, err := h.Sessions.Sealer.OpenFlow(ck.Value, h.Sessions.now())
	if err != nil || flow.Provider != c.Param("provider") || flow.State != c.QueryParam("state") {
		l.Warn("oauth_callback_rejected", "reason", "state mismatch", "error", err)
		return h.deny(c, service.ReasonAccessDenied)
	}
	if e := c.QueryParam("error"); e != "" {
		l.Warn("oauth_callback_rejected", "reason", "provider error", "error", e)
		return h.deny(c, service.ReasonAccessDenied)
	}

	p, err := h.Providers.Get(flow.Provider)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "unknown provider")
	}
	id, err := p.Exchange(ctx, c.QueryParam("code"), flow.Verifier)
	if err != nil {
		l.Warn("oauth_callback_rejected", "reason", "exchange failed", "error", err)
		return h.deny(c, service.ReasonAccessDenied)
	}

	res := h.Svc.SignInWithProvider(ctx, *id)
	if !res.OK() {
		return h.deny(c, res.Reason)
	}

	if _, err := h.Sessions.Save(c, *res.State, uuid.NewString()); err != nil {
		l.Error("oauth_callback_error", "status", 500, "reason", "cannot seal session", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create session")
	}
	return c.Redirect(http.StatusFound, h.HomePath)
}

func (h *OAuthHTTP) deny(c echo.Context, reason service.RejectReason) error {
	q := url.Values{"error": {string(reason)}}
	return c.Redirect(http.StatusFound, h.LoginPath+"?"+q.Encode())
}
