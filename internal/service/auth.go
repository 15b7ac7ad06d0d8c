package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Skotchmaster/restaurant_admin/internal/events"
	"github.com/Skotchmaster/restaurant_admin/internal/metrics"
	"github.com/Skotchmaster/restaurant_admin/internal/models"
	"github.com/Skotchmaster/restaurant_admin/pkg/backend"
	"github.com/Skotchmaster/restaurant_admin/pkg/logging"
	"github.com/Skotchmaster/restaurant_admin/pkg/tokens"
)

// SignInAPI is the part of the restaurant API the authenticator needs.
type SignInAPI interface {
	SignIn(ctx context.Context, email, password string) (*backend.SignInResponse, error)
	ProviderSignIn(ctx context.Context, email, name, provider string) (*backend.SignInResponse, error)
}

type RejectReason string

const (
	ReasonCredentialsRequired RejectReason = "CredentialsRequired"
	ReasonInvalidCredentials  RejectReason = "InvalidCredentials"
	ReasonEmailNotVerified    RejectReason = "EmailNotVerified"
	ReasonUserRoleNotAllowed  RejectReason = "UserRoleNotAllowed"
	ReasonAccessDenied        RejectReason = "AccessDenied"
)

// Message is the text shown on the login page.
func (r RejectReason) Message() string {
	switch r {
	case ReasonCredentialsRequired:
		return "Email and password are required"
	case ReasonEmailNotVerified:
		return "Please verify your email address before signing in"
	case ReasonUserRoleNotAllowed:
		return "Your account does not have access to the restaurant admin"
	case ReasonAccessDenied:
		return "Access denied"
	default:
		return "Invalid email or password"
	}
}

// Status is the HTTP status the sign-in endpoint answers with.
func (r RejectReason) Status() int {
	if r == ReasonCredentialsRequired {
		return http.StatusBadRequest
	}
	return http.StatusUnauthorized
}

// SignInResult holds either a new token state or the reason it was refused.
type SignInResult struct {
	State  *models.TokenState
	Reason RejectReason
}

func (r SignInResult) OK() bool { return r.State != nil }

// Revoker remembers a signed-out session id until the given time.
type Revoker interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
}

type AuthService struct {
	API     SignInAPI
	Revoked Revoker
	Events  events.Publisher
	Metrics *metrics.Metrics
}

func (s *AuthService) SignIn(ctx context.Context, email, password string) SignInResult {
	l := logging.FromContext(ctx).With("svc", "auth.signin")
	email = strings.TrimSpace(email)

	if email == "" || password == "" {
		l.Warn("signin_rejected", "status", 400, "reason", ReasonCredentialsRequired)
		return s.reject(ctx, email, "credentials", ReasonCredentialsRequired)
	}

	res, err := s.API.SignIn(ctx, email, password)
	if err != nil {
		reason := reasonFor(err)
		l.Warn("signin_rejected", "email", email, "reason", reason, "error", err)
		return s.reject(ctx, email, "credentials", reason)
	}
	return s.accept(ctx, "credentials", res)
}

// SignInWithProvider admits an identity vouched for by an OAuth provider,
// provided the restaurant API knows the account and hands out tokens for it.
func (s *AuthService) SignInWithProvider(ctx context.Context, id models.Identity) SignInResult {
	l := logging.FromContext(ctx).With("svc", "auth.provider_signin", "provider", id.Provider)

	if id.Email == "" {
		l.Warn("signin_rejected", "reason", ReasonAccessDenied, "error", "identity without email")
		return s.reject(ctx, "", id.Provider, ReasonAccessDenied)
	}

	res, err := s.API.ProviderSignIn(ctx, id.Email, id.Name, id.Provider)
	if err != nil {
		l.Warn("signin_rejected", "email", id.Email, "reason", ReasonAccessDenied, "error", err)
		return s.reject(ctx, id.Email, id.Provider, ReasonAccessDenied)
	}
	if res.AccessToken == "" {
		l.Warn("signin_rejected", "email", id.Email, "reason", ReasonAccessDenied, "error", "no tokens issued")
		return s.reject(ctx, id.Email, id.Provider, ReasonAccessDenied)
	}
	return s.accept(ctx, id.Provider, res)
}

// SignOut revokes the session id so the cookie stops working even if a copy
// of it survives on the client.
func (s *AuthService) SignOut(ctx context.Context, jti string, user models.User, until time.Time) error {
	l := logging.FromContext(ctx).With("svc", "auth.signout", "user_id", user.ID)

	if s.Revoked != nil {
		if err := s.Revoked.Revoke(ctx, jti, until); err != nil {
			l.Error("signout_failed", "error", err)
			return fmt.Errorf("signout: %w", err)
		}
	}

	publish(ctx, s.Events, events.Event{
		Type:   events.TypeSignedOut,
		UserID: user.ID,
		Email:  user.Email,
		At:     time.Now().UTC(),
	})
	l.Info("signout_ok")
	return nil
}

func (s *AuthService) accept(ctx context.Context, provider string, res *backend.SignInResponse) SignInResult {
	l := logging.FromContext(ctx).With("svc", "auth.signin", "user_id", res.User.ID)

	if role := res.User.PrimaryRole(); role == "" || role == models.GenericRole {
		l.Warn("signin_rejected", "reason", ReasonUserRoleNotAllowed, "role", role)
		return s.reject(ctx, res.User.Email, provider, ReasonUserRoleNotAllowed)
	}

	exp, err := tokens.AccessExpiry(res.AccessToken)
	if err != nil {
		l.Error("signin_rejected", "reason", ReasonInvalidCredentials, "error", err)
		return s.reject(ctx, res.User.Email, provider, ReasonInvalidCredentials)
	}

	st := &models.TokenState{
		User:                 res.User,
		AccessToken:          res.AccessToken,
		RefreshToken:         res.RefreshToken,
		AccessTokenExpiresAt: exp,
	}

	s.Metrics.SignIn("ok")
	publish(ctx, s.Events, events.Event{
		Type:     events.TypeSignedIn,
		UserID:   res.User.ID,
		Email:    res.User.Email,
		Provider: provider,
		At:       time.Now().UTC(),
	})
	l.Info("signin_ok", "role", res.User.PrimaryRole())
	return SignInResult{State: st}
}

func (s *AuthService) reject(ctx context.Context, email, provider string, reason RejectReason) SignInResult {
	s.Metrics.SignIn(string(reason))
	publish(ctx, s.Events, events.Event{
		Type:     events.TypeSignInRejected,
		Email:    email,
		Provider: provider,
		Reason:   string(reason),
		At:       time.Now().UTC(),
	})
	return SignInResult{Reason: reason}
}

func reasonFor(err error) RejectReason {
	switch {
	case backend.IsStatus(err, http.StatusUnauthorized):
		return ReasonInvalidCredentials
	case backend.IsStatus(err, http.StatusForbidden):
		return ReasonEmailNotVerified
	default:
		return ReasonInvalidCredentials
	}
}

// publish never fails the caller. Broker trouble is logged and dropped.
func publish(ctx context.Context, p events.Publisher, e events.Event) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.Publish(ctx, e); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "type", e.Type, "error", err)
	}
}
