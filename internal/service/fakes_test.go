package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/restaurant_admin/internal/events"
	"github.com/Skotchmaster/restaurant_admin/pkg/backend"
)

type fakeAPI struct {
	mu sync.Mutex

	signIn      *backend.SignInResponse
	signInErr   error
	signInCalls int

	providerCalls int

	refresh      *backend.TokenPair
	refreshErr   error
	refreshCalls []string
}

func (f *fakeAPI) SignIn(_ context.Context, _, _ string) (*backend.SignInResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signInCalls++
	return f.signIn, f.signInErr
}

func (f *fakeAPI) ProviderSignIn(_ context.Context, _, _, _ string) (*backend.SignInResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.providerCalls++
	return f.signIn, f.signInErr
}

func (f *fakeAPI) Refresh(_ context.Context, refreshToken string) (*backend.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls = append(f.refreshCalls, refreshToken)
	return f.refresh, f.refreshErr
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// accessToken mints a backend-style access token. The key is irrelevant
// because expiry is read without verification.
func accessToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("backend-only-key"))
	require.NoError(t, err)
	return tok
}
