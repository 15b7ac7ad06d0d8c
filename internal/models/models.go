package models

import "time"

// RefreshTokenError tags a session whose refresh attempt failed.
const RefreshTokenError = "RefreshTokenError"

// GenericRole is the restaurant role that grants no admin access.
const GenericRole = "user"

type RestaurantUser struct {
	RestaurantID string `json:"restaurantId"`
	Role         string `json:"role"`
}

type User struct {
	ID              string           `json:"id"`
	Firstname       string           `json:"firstname"`
	Lastname        string           `json:"lastname"`
	Email           string           `json:"email"`
	Role            string           `json:"role"`
	IsVerified      bool             `json:"isVerified"`
	PhoneNumber     string           `json:"phoneNumber,omitempty"`
	ProfileImageURL string           `json:"profileImageUrl,omitempty"`
	RestaurantUsers []RestaurantUser `json:"restaurantUsers"`
}

// PrimaryRole returns the role of the first restaurant association, or ""
// when the user has none.
func (u User) PrimaryRole() string {
	if len(u.RestaurantUsers) == 0 {
		return ""
	}
	return u.RestaurantUsers[0].Role
}

// TokenState is what the signed session token carries between requests.
type TokenState struct {
	User                 User   `json:"user"`
	AccessToken          string `json:"accessToken,omitempty"`
	RefreshToken         string `json:"refreshToken,omitempty"`
	AccessTokenExpiresAt int64  `json:"accessTokenExpiresAt"`
	Error                string `json:"error,omitempty"`
}

type Phase int

const (
	PhaseFresh Phase = iota
	PhaseExpired
	PhaseErrored
)

func (p Phase) String() string {
	switch p {
	case PhaseFresh:
		return "fresh"
	case PhaseExpired:
		return "expired"
	case PhaseErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Phase classifies the state at now. An errored state stays errored until a
// new sign-in replaces it.
func (s TokenState) Phase(now time.Time) Phase {
	if s.Error == RefreshTokenError {
		return PhaseErrored
	}
	if now.UnixMilli() < s.AccessTokenExpiresAt {
		return PhaseFresh
	}
	return PhaseExpired
}

// Session is the projection handed to the UI.
type Session struct {
	User         User   `json:"user"`
	BearerToken  string `json:"bearerToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	Error        string `json:"error,omitempty"`
	Expires      string `json:"expires"`
}

// ProfilePatch lists the user fields a profile update may change. Nil means
// "leave as is".
type ProfilePatch struct {
	Firstname       *string `json:"firstname"`
	Lastname        *string `json:"lastname"`
	PhoneNumber     *string `json:"phoneNumber"`
	ProfileImageURL *string `json:"profileImageUrl"`
}

func (p ProfilePatch) Empty() bool {
	return p.Firstname == nil && p.Lastname == nil && p.PhoneNumber == nil && p.ProfileImageURL == nil
}

// Identity is what an OAuth provider vouches for after a successful exchange.
type Identity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}
