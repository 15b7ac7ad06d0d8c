package httpserver

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/restaurant_admin/internal/models"
	"github.com/Skotchmaster/restaurant_admin/pkg/logging"
	"github.com/Skotchmaster/restaurant_admin/pkg/tokens"
)

type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Sessions reads and writes the signed session cookie.
type Sessions struct {
	Sealer  *tokens.Sealer
	Revoked RevocationChecker
	Cookie  string
	Secure  bool
	Now     func() time.Time
}

func (s *Sessions) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Load returns the session carried by the request. A cookie that does not
// verify or belongs to a signed-out session is cleared and reported as absent.
func (s *Sessions) Load(c echo.Context) (*tokens.SessionClaims, bool) {
	ck, err := c.Cookie(s.Cookie)
	if err != nil || ck.Value == "" {
		return nil, false
	}

	l := logging.FromContext(c.Request().Context())

	claims, err := s.Sealer.Open(ck.Value, s.now())
	if err != nil {
		l.Warn("session_rejected", "reason", "invalid", "error", err)
		s.Clear(c)
		return nil, false
	}

	if s.Revoked != nil {
		revoked, err := s.Revoked.IsRevoked(c.Request().Context(), claims.ID)
		if err != nil {
			l.Error("session_rejected", "reason", "revocation lookup failed", "error", err)
			return nil, false
		}
		if revoked {
			l.Info("session_rejected", "reason", "revoked", "user_id", claims.User.ID)
			s.Clear(c)
			return nil, false
		}
	}
	return claims, true
}

// Save seals st under jti and sets the cookie. Each save slides the expiry.
func (s *Sessions) Save(c echo.Context, st models.TokenState, jti string) (time.Time, error) {
	raw, exp, err := s.Sealer.Seal(st, jti, s.now())
	if err != nil {
		return time.Time{}, err
	}
	c.SetCookie(CreateCookie(s.Cookie, raw, "/", exp, s.Secure))
	return exp, nil
}

func (s *Sessions) Clear(c echo.Context) {
	c.SetCookie(DeleteCookie(s.Cookie, "/", s.Secure))
}
