package authstub

import "errors"

var (
	ErrEmailTaken         = errors.New("authstub: email already registered")
	ErrUserNotFound       = errors.New("authstub: user not found")
	ErrInvalidCredentials = errors.New("authstub: invalid email or password")
	ErrInvalidCode        = errors.New("authstub: invalid or expired code")
	ErrTokenExpired       = errors.New("authstub: temporary token expired")
	ErrUnauthorized       = errors.New("authstub: missing or unknown bearer token")
	ErrForbidden          = errors.New("authstub: token does not belong to this user")
)
