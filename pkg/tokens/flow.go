package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const flowIssuer = "restaurant-admin/oauth"

var ErrInvalidFlow = errors.New("invalid oauth flow token")

// FlowClaims carries the OAuth state and PKCE verifier between the redirect
// to the provider and its callback.
type FlowClaims struct {
	Provider string `json:"provider"`
	State    string `json:"state"`
	Verifier string `json:"verifier"`
	jwt.RegisteredClaims
}

func (s *Sealer) SealFlow(provider, state, verifier string, now time.Time, ttl time.Duration) (string, error) {
	claims := FlowClaims{
		Provider: provider,
		State:    state,
		Verifier: verifier,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    flowIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign oauth flow: %w", err)
	}
	return signed, nil
}

func (s *Sealer) OpenFlow(raw string, now time.Time) (*FlowClaims, error) {
	var claims FlowClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(flowIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFlow, err)
	}
	if claims.State == "" || claims.Verifier == "" {
		return nil, ErrInvalidFlow
	}
	return &claims, nil
}
