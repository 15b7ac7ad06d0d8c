package service

import "errors"

var (
	ErrValidation = errors.New("validation error")
	ErrNoRefresh  = errors.New("no refresh token")
	ErrBadAccess  = errors.New("refreshed access token is unreadable")
	ErrEmptyPatch = errors.New("profile patch changes nothing")
)
