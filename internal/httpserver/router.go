package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	ecM "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/restaurant_admin/pkg/middleware/csrf"
	loggingmw "github.com/Skotchmaster/restaurant_admin/pkg/middleware/logging"
)

type Deps struct {
	Auth  *AuthHTTP
	OAuth *OAuthHTTP

	APITarget    *url.URL
	APITransport http.RoundTripper

	CSRF    csrf.Config
	Logger  *slog.Logger
	Metrics http.Handler
	Ready   func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) error {
	if d.Auth == nil || d.APITarget == nil {
		return errors.New("httpserver: auth handlers and api target are required")
	}

	e.Use(ecM.Recover())
	e.Use(ecM.RequestID())
	if d.Logger != nil {
		e.Use(loggingmw.RequestLogger(d.Logger))
	}

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "not ready")
			}
		}
		return c.NoContent(http.StatusOK)
	})
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}

	csrfMw := csrf.Middleware(d.CSRF)

	auth := e.Group("/api/auth", csrfMw)
	auth.GET("/csrf", d.Auth.CSRF)
	auth.POST("/callback/credentials", d.Auth.Credentials)
	auth.GET("/session", d.Auth.Session)
	auth.POST("/session", d.Auth.UpdateSession)
	auth.POST("/signout", d.Auth.SignOut)
	if d.OAuth != nil {
		auth.GET("/providers", d.OAuth.List)
		auth.GET("/signin/:provider", d.OAuth.SignIn)
		auth.GET("/callback/:provider", d.OAuth.Callback)
	}

	proxy := newProxy(d.APITarget, d.APITransport, "/api/v1")
	api := e.Group("/api/v1", csrfMw, d.Auth.RequireSession)
	api.Any("", proxy)
	api.Any("/*", proxy)

	return nil
}
