package tokens

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"

	"github.com/Skotchmaster/restaurant_admin/internal/models"
)

const (
	sessionIssuer = "restaurant-admin"
	keyInfo       = "restaurant admin session key"
)

var (
	ErrNoSecret       = errors.New("session secret is empty")
	ErrInvalidSession = errors.New("invalid session token")
)

// SessionClaims is the payload of the session cookie.
type SessionClaims struct {
	models.TokenState
	jwt.RegisteredClaims
}

// Sealer signs and verifies session tokens with a key derived from the
// process secret.
type Sealer struct {
	key    []byte
	maxAge time.Duration
}

func NewSealer(secret []byte, maxAge time.Duration) (*Sealer, error) {
	if len(secret) == 0 {
		return nil, ErrNoSecret
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	return &Sealer{key: key, maxAge: maxAge}, nil
}

func (s *Sealer) MaxAge() time.Duration { return s.maxAge }

// Seal signs state under jti. The returned time is the token's expiry.
func (s *Sealer) Seal(state models.TokenState, jti string, now time.Time) (string, time.Time, error) {
	claims := SessionClaims{
		TokenState: state,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    sessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.maxAge)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Open verifies raw and returns its claims. Any failure wraps
// ErrInvalidSession.
func (s *Sealer) Open(raw string, now time.Time) (*SessionClaims, error) {
	var claims SessionClaims
	tkn, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if !tkn.Valid || claims.ID == "" {
		return nil, ErrInvalidSession
	}
	return &claims, nil
}
