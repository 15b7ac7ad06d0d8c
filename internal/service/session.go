package service

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Skotchmaster/restaurant_admin/internal/models"
)

// Project builds the UI view of a token state. It copies and never checks.
func Project(st models.TokenState, expires time.Time) models.Session {
	return models.Session{
		User:         st.User,
		BearerToken:  st.AccessToken,
		RefreshToken: st.RefreshToken,
		Error:        st.Error,
		Expires:      expires.UTC().Format(time.RFC3339),
	}
}

// MergeProfile applies the set fields of p to the user snapshot. Tokens and
// expiry are left alone.
func MergeProfile(st models.TokenState, p models.ProfilePatch) models.TokenState {
	next := st
	if p.Firstname != nil {
		next.User.Firstname = *p.Firstname
	}
	if p.Lastname != nil {
		next.User.Lastname = *p.Lastname
	}
	if p.PhoneNumber != nil {
		next.User.PhoneNumber = *p.PhoneNumber
	}
	if p.ProfileImageURL != nil {
		next.User.ProfileImageURL = *p.ProfileImageURL
	}
	return next
}

// DecodeProfilePatch reads a single patch object. Fields outside the patch
// are refused rather than ignored.
func DecodeProfilePatch(r io.Reader) (models.ProfilePatch, error) {
	var p models.ProfilePatch
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return models.ProfilePatch{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if p.Empty() {
		return models.ProfilePatch{}, fmt.Errorf("%w: %w", ErrValidation, ErrEmptyPatch)
	}
	return p, nil
}
