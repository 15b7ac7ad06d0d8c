package httpserver

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/restaurant_admin/pkg/logging"
)

// newProxy forwards requests under stripPrefix to target with the session's
// bearer token. Browser cookies are not passed on.
func newProxy(target *url.URL, transport http.RoundTripper, stripPrefix string) echo.HandlerFunc {
	p := httputil.NewSingleHostReverseProxy(target)
	if transport != nil {
		p.Transport = transport
	}

	origDirector := p.Director
	p.Director = func(req *http.Request) {
		originalHost := req.Host
		originalProto := "http"
		if req.TLS != nil {
			originalProto = "https"
		} else if xf := req.Header.Get("X-Forwarded-Proto"); xf != "" {
			originalProto = xf
		}

		if stripPrefix != "" && strings.HasPrefix(req.URL.Path, stripPrefix) {
			req.URL.Path = strings.TrimPrefix(req.URL.Path, stripPrefix)
			if rp := req.URL.RawPath; rp != "" && strings.HasPrefix(rp, stripPrefix) {
				req.URL.RawPath = strings.TrimPrefix(rp, stripPrefix)
			}
		}

		origDirector(req)

		if req.Header.Get("X-Forwarded-Proto") == "" {
			req.Header.Set("X-Forwarded-Proto", originalProto)
		}
		if req.Header.Get("X-Forwarded-Host") == "" && originalHost != "" {
			req.Header.Set("X-Forwarded-Host", originalHost)
		}
	}

	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logging.FromContext(r.Context()).Error("proxy_error", "status", 502, "error", err)
		w.WriteHeader(http.StatusBadGateway)
	}
	p.FlushInterval = 100 * time.Millisecond

	return func(c echo.Context) error {
		req := c.Request()
		req.Header.Del("Cookie")
		req.Header.Del(echo.HeaderAuthorization)
		if tok, _ := c.Get(ctxAccessToken).(string); tok != "" {
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
		}
		p.ServeHTTP(c.Response(), req)
		return nil
	}
}
