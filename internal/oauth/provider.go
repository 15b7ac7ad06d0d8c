package oauth

import (
	"context"

	"github.com/Skotchmaster/restaurant_admin/internal/models"
)

// Provider is an external identity provider. It reports who the user is and
// makes no access decisions.
type Provider interface {
	Name() string

	// AuthCodeURL returns the consent page URL. The caller owns state and the
	// PKCE verifier.
	AuthCodeURL(state, verifier string) string

	Exchange(ctx context.Context, code, verifier string) (*models.Identity, error)
}
