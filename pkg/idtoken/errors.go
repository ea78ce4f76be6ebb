package idtoken

import "errors"

var (
	ErrEmptyToken     = errors.New("idtoken: empty token")
	ErrMalformedToken = errors.New("idtoken: malformed token")
	ErrMissingSubject = errors.New("idtoken: token has no subject claim")
)
