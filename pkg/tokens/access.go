package tokens

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed = errors.New("malformed token")
	ErrNoExpiry  = errors.New("token has no exp claim")
)

// AccessExpiry returns the access token's exp claim in epoch milliseconds.
// The signature is not checked: the API's signing key never leaves the API,
// the token is only read to schedule the next refresh.
func AccessExpiry(accessToken string) (int64, error) {
	if accessToken == "" {
		return 0, ErrMalformed
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if claims.ExpiresAt == nil {
		return 0, ErrNoExpiry
	}
	return claims.ExpiresAt.Unix() * 1000, nil
}
