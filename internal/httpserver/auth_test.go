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

func TestCredentials_SignIn(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rec := f.signIn("waiter@resto.io")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	s := decodeSession(t, rec)
	assert.Equal(t, "waiter", s.User.RestaurantUsers[0].Role)
	assert.NotEmpty(t, s.BearerToken)
	assert.Equal(t, "refresh-1", s.RefreshToken)
	assert.Empty(t, s.Error)
	assert.NotEmpty(t, s.Expires)

	ck, ok := f.cookies["session-token"]
	require.True(t, ok)
	assert.True(t, ck.HttpOnly)
}

func TestCredentials_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		status int
		reason string
	}{
		{name: "unverified email", body: `{"email":"unverified@resto.io","password":"secret"}`, status: http.StatusUnauthorized, reason: "EmailNotVerified"},
		{name: "wrong password", body: `{"email":"waiter@resto.io","password":"nope"}`, status: http.StatusUnauthorized, reason: "InvalidCredentials"},
		{name: "generic role", body: `{"email":"user@resto.io","password":"secret"}`, status: http.StatusUnauthorized, reason: "UserRoleNotAllowed"},
		{name: "missing password", body: `{"email":"waiter@resto.io"}`, status: http.StatusBadRequest, reason: "CredentialsRequired"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			f.csrf()
			rec := f.do(http.MethodPost, "/api/auth/callback/credentials", tt.body)
			require.Equal(t, tt.status, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.reason, body["error"])
			assert.NotEmpty(t, body["message"])

			_, ok := f.cookies["session-token"]
			assert.False(t, ok)
		})
	}
}

func TestCredentials_RequiresCSRF(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/auth/callback/credentials", `{"email":"waiter@resto.io","password":"secret"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSession_SignedOutIsEmpty(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/auth/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
}

func TestSession_RefreshLifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	first := decodeSession(t, f.signIn("manager@resto.io"))

	rec := f.do(http.MethodGet, "/api/auth/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first.BearerToken, decodeSession(t, rec).BearerToken)
	assert.Zero(t, f.api.seen().refreshCalls)

	f.advance(15 * time.Minute)

	rec = f.do(http.MethodGet, "/api/auth/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	refreshed := decodeSession(t, rec)
	assert.Equal(t, 1, f.api.seen().refreshCalls)
	assert.NotEqual(t, first.BearerToken, refreshed.BearerToken)
	assert.Equal(t, "refresh-2", refreshed.RefreshToken)
	assert.Empty(t, refreshed.Error)

	rec = f.do(http.MethodGet, "/api/auth/session", "")
	assert.Equal(t, refreshed.BearerToken, decodeSession(t, rec).BearerToken)
	assert.Equal(t, 1, f.api.seen().refreshCalls)
}

func TestSession_RefreshFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.signIn("manager@resto.io")
	f.api.setFailRefresh(true)
	f.advance(16 * time.Minute)

	rec := f.do(http.MethodGet, "/api/auth/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	s := decodeSession(t, rec)
	assert.Equal(t, models.RefreshTokenError, s.Error)
	assert.Empty(t, s.BearerToken)
	assert.Equal(t, "manager", s.User.RestaurantUsers[0].Role)
	assert.Equal(t, 1, f.api.seen().refreshCalls)

	rec = f.do(http.MethodGet, "/api/auth/session", "")
	assert.Equal(t, models.RefreshTokenError, decodeSession(t, rec).Error)
	assert.Equal(t, 1, f.api.seen().refreshCalls)
}

func TestSession_TamperedCookieIsIgnored(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.signIn("manager@resto.io")
	f.cookies["session-token"].Value += "x"

	rec := f.do(http.MethodGet, "/api/auth/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
	_, ok := f.cookies["session-token"]
	assert.False(t, ok)
}

func TestUpdateSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	before := decodeSession(t, f.signIn("waiter@resto.io"))
	f.advance(time.Hour)

	rec := f.do(http.MethodPost, "/api/auth/session", `{"user":{"firstname":"Anna","phoneNumber":"+4912345"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	s := decodeSession(t, rec)
	assert.Equal(t, "Anna", s.User.Firstname)
	assert.Equal(t, "+4912345", s.User.PhoneNumber)
	assert.Equal(t, "Lee", s.User.Lastname)
	assert.Equal(t, before.BearerToken, s.BearerToken)
	assert.Equal(t, before.RefreshToken, s.RefreshToken)
	assert.Zero(t, f.api.seen().refreshCalls)

	for _, body := range []string{
		`{"user":{"role":"admin"}}`,
		`{"user":{"firstname":"A"},"accessToken":"forged"}`,
		`{"user":{}}`,
		`{}`,
	} {
		rec := f.do(http.MethodPost, "/api/auth/session", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestUpdateSession_RequiresSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.csrf()
	rec := f.do(http.MethodPost, "/api/auth/session", `{"user":{"firstname":"Anna"}}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignOut_RevokesSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.signIn("waiter@resto.io")
	stolen := *f.cookies["session-token"]

	rec := f.do(http.MethodPost, "/api/auth/signout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"url":"/login"}`, rec.Body.String())
	_, ok := f.cookies["session-token"]
	assert.False(t, ok)

	rec = f.do(http.MethodGet, "/api/auth/session", "")
	assert.JSONEq(t, `{}`, rec.Body.String())

	f.cookies["session-token"] = &stolen
	rec = f.do(http.MethodGet, "/api/auth/session", "")
	assert.JSONEq(t, `{}`, rec.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health/live", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health/ready", "").Code)

	f.signIn("waiter@resto.io")
	rec := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `signin_total{outcome="ok"} 1`)
}
