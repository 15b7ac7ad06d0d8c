package httpserver

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/restaurant_admin/internal/models"
)

func TestProxy_ForwardsBearerToken(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	s := decodeSession(t, f.signIn("waiter@resto.io"))

	rec := f.do(http.MethodGet, "/api/v1/orders?status=open", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	seen := f.api.seen()
	assert.Equal(t, "Bearer "+s.BearerToken, seen.auth)
	assert.Empty(t, seen.cookie)
	assert.Equal(t, "/orders", seen.path)
}

func TestProxy_RefreshesBeforeForwarding(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	old := decodeSession(t, f.signIn("waiter@resto.io"))
	f.advance(20 * time.Minute)

	rec := f.do(http.MethodGet, "/api/v1/menu", "")
	require.Equal(t, http.StatusOK, rec.Code)
	seen := f.api.seen()
	assert.Equal(t, 1, seen.refreshCalls)
	assert.NotEqual(t, "Bearer "+old.BearerToken, seen.auth)

	now := decodeSession(t, f.do(http.MethodGet, "/api/auth/session", ""))
	assert.Equal(t, "Bearer "+now.BearerToken, seen.auth)
	assert.Equal(t, 1, f.api.seen().refreshCalls)
}

func TestProxy_RequiresSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/v1/orders", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, f.api.seen().path)
}

func TestProxy_ErroredSessionRedirects(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.signIn("waiter@resto.io")
	f.api.setFailRefresh(true)
	f.advance(20 * time.Minute)

	rec := f.do(http.MethodGet, "/api/v1/orders", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, models.RefreshTokenError, body["error"])
	assert.Equal(t, "/login", body["redirect"])

	_, ok := f.cookies["session-token"]
	assert.False(t, ok)
	assert.Empty(t, f.api.seen().path)
}

func TestProxy_UnsafeMethodNeedsCSRF(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.signIn("waiter@resto.io")
	delete(f.cookies, "XSRF-TOKEN")

	rec := f.do(http.MethodPost, "/api/v1/orders", `{"table":4}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, f.api.seen().path)
}
