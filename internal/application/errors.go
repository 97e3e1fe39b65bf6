package application

import "errors"

// Service-level failures the handlers translate to HTTP responses.
// Domain rejections (capacity, windows, roles) come from the registration
// package and pass through untouched.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrAccountInactive    = errors.New("account is deactivated")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidEventID     = errors.New("invalid event id")
	ErrInvalidTransition  = errors.New("invalid status transition")
)
