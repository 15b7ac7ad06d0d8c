package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Skotchmaster/restaurant_admin/internal/events"
	"github.com/Skotchmaster/restaurant_admin/internal/metrics"
	"github.com/Skotchmaster/restaurant_admin/internal/models"
	"github.com/Skotchmaster/restaurant_admin/pkg/backend"
	"github.com/Skotchmaster/restaurant_admin/pkg/logging"
	"github.com/Skotchmaster/restaurant_admin/pkg/tokens"
)

type RefreshAPI interface {
	Refresh(ctx context.Context, refreshToken string) (*backend.TokenPair, error)
}

// RefreshCoordinator runs on every session read and keeps the access token
// usable. It makes at most one backend call per read.
type RefreshCoordinator struct {
	API     RefreshAPI
	Events  events.Publisher
	Metrics *metrics.Metrics
	Now     func() time.Time
}

func (c *RefreshCoordinator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Read returns the state to keep for this request. Fresh and errored states
// come back unchanged. An expired state is refreshed once; on any failure the
// tokens are dropped and the state is tagged RefreshTokenError.
func (c *RefreshCoordinator) Read(ctx context.Context, st models.TokenState) models.TokenState {
	phase := st.Phase(c.now())
	c.Metrics.SessionRead(phase.String())
	if phase != models.PhaseExpired {
		return st
	}

	l := logging.FromContext(ctx).With("svc", "session.refresh", "user_id", st.User.ID)

	if st.RefreshToken == "" {
		c.Metrics.Refresh("failed", 0)
		return c.fail(ctx, st, ErrNoRefresh)
	}

	start := time.Now()
	pair, err := c.API.Refresh(ctx, st.RefreshToken)
	took := time.Since(start)
	if err != nil {
		c.Metrics.Refresh("failed", took)
		return c.fail(ctx, st, err)
	}

	exp, err := tokens.AccessExpiry(pair.AccessToken)
	if err != nil {
		c.Metrics.Refresh("failed", took)
		return c.fail(ctx, st, fmt.Errorf("%w: %v", ErrBadAccess, err))
	}

	next := st
	next.AccessToken = pair.AccessToken
	if pair.RefreshToken != "" {
		next.RefreshToken = pair.RefreshToken
	}
	next.AccessTokenExpiresAt = exp
	next.Error = ""

	c.Metrics.Refresh("ok", took)
	publish(ctx, c.Events, events.Event{
		Type:   events.TypeSessionRefreshed,
		UserID: st.User.ID,
		Email:  st.User.Email,
		At:     time.Now().UTC(),
	})
	l.Info("session_refreshed", "expires_at", exp, "duration_ms", took.Milliseconds())
	return next
}

func (c *RefreshCoordinator) fail(ctx context.Context, st models.TokenState, cause error) models.TokenState {
	logging.FromContext(ctx).Warn("session_refresh_failed",
		"svc", "session.refresh", "user_id", st.User.ID, "error", cause)

	next := st
	next.AccessToken = ""
	next.RefreshToken = ""
	next.AccessTokenExpiresAt = 0
	next.Error = models.RefreshTokenError

	publish(ctx, c.Events, events.Event{
		Type:   events.TypeSessionRefreshFailed,
		UserID: st.User.ID,
		Email:  st.User.Email,
		Reason: models.RefreshTokenError,
		At:     time.Now().UTC(),
	})
	return next
}
