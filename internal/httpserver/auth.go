package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/restaurant_admin/internal/service"
	"github.com/Skotchmaster/restaurant_admin/pkg/logging"
	"github.com/Skotchmaster/restaurant_admin/pkg/middleware/csrf"
)

const ctxAccessToken = "access_token"

type AuthHTTP struct {
	Svc       *service.AuthService
	Refresh   *service.RefreshCoordinator
	Sessions  *Sessions
	LoginPath string
}

func (h *AuthHTTP) CSRF(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"csrfToken": csrf.Token(c)})
}

func (h *AuthHTTP) Credentials(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_credentials")

	var req struct {
		Email    string `json:"email" form:"email"`
		Password string `json:"password" form:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("signin_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res := h.Svc.SignIn(ctx, req.Email, req.Password)
	if !res.OK() {
		return c.JSON(res.Reason.Status(), echo.Map{
			"error":   res.Reason,
			"message": res.Reason.Message(),
		})
	}

	exp, err := h.Sessions.Save(c, *res.State, uuid.NewString())
	if err != nil {
		l.Error("signin_error", "status", 500, "reason", "cannot seal session", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create session")
	}
	return c.JSON(http.StatusOK, service.Project(*res.State, exp))
}

// Session is the session read. It runs the refresh coordinator and answers
// with an empty object when nobody is signed in.
func (h *AuthHTTP) Session(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_session")

	claims, ok := h.Sessions.Load(c)
	if !ok {
		return c.JSON(http.StatusOK, echo.Map{})
	}

	st := h.Refresh.Read(ctx, claims.TokenState)
	exp, err := h.Sessions.Save(c, st, claims.ID)
	if err != nil {
		l.Error("session_error", "status", 500, "reason", "cannot seal session", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update session")
	}
	return c.JSON(http.StatusOK, service.Project(st, exp))
}

// UpdateSession merges a profile patch into the stored user. Token expiry is
// not consulted.
func (h *AuthHTTP) UpdateSession(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_session_update")

	claims, ok := h.Sessions.Load(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "no session")
	}

	var body struct {
		User json.RawMessage `json:"user"`
	}
	dec := json.NewDecoder(c.Request().Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil || len(body.User) == 0 {
		l.Warn("session_update_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	patch, err := service.DecodeProfilePatch(bytes.NewReader(body.User))
	if err != nil {
		l.Warn("session_update_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid profile update")
	}

	st := service.MergeProfile(claims.TokenState, patch)
	exp, err := h.Sessions.Save(c, st, claims.ID)
	if err != nil {
		l.Error("session_update_error", "status", 500, "reason", "cannot seal session", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update session")
	}
	l.Info("session_updated", "user_id", st.User.ID)
	return c.JSON(http.StatusOK, service.Project(st, exp))
}

func (h *AuthHTTP) SignOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_signout")

	claims, ok := h.Sessions.Load(c)
	h.Sessions.Clear(c)
	if ok {
		if err := h.Svc.SignOut(ctx, claims.ID, claims.User, claims.ExpiresAt.Time); err != nil {
			l.Error("signout_failed", "status", 500, "reason", "cannot revoke session", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot sign out")
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"url": h.LoginPath})
}

// RequireSession guards the API proxy. It refreshes the access token when
// needed and turns an errored session into a redirect hint for the UI.
func (h *AuthHTTP) RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		claims, ok := h.Sessions.Load(c)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing session")
		}

		st := h.Refresh.Read(ctx, claims.TokenState)
		if st.Error != "" {
			h.Sessions.Clear(c)
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"error":    st.Error,
				"redirect": h.LoginPath,
			})
		}

		if _, err := h.Sessions.Save(c, st, claims.ID); err != nil {
			logging.FromContext(ctx).Error("session_error", "status", 500, "reason", "cannot seal session", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot update session")
		}

		c.Set(ctxAccessToken, st.AccessToken)
		c.Set("user_id", st.User.ID)
		return next(c)
	}
}
