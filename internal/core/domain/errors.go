package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrFeaturedLimit      = errors.New("featured product limit reached")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotConfirmed  = errors.New("email address not confirmed")
)
