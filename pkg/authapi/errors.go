package authapi

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNetwork             = errors.New("authapi: network failure")
	ErrApplication         = errors.New("authapi: request rejected")
	ErrMalformedResponse   = errors.New("authapi: malformed response body")
	ErrInvalidBaseURL      = errors.New("authapi: invalid base URL")
	ErrUnsupportedProvider = errors.New("authapi: unsupported OAuth provider")
)

// NetworkError means no usable response was received: the request could not
// be sent, timed out, or the body of a 2xx response could not be decoded.
type NetworkError struct {
	Op        string
	RequestID string
	Err       error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("authapi: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() []error { return []error{ErrNetwork, e.Err} }

// APIError is a non-2xx response. Message holds the server's "error" or
// "message" field when present.
type APIError struct {
	Op        string
	Status    int
	Message   string
	RequestID string

	// Set by login when the account exists but its email is unverified.
	RequiresVerification bool
	Email                string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("authapi: %s: %d %s", e.Op, e.Status, msg)
}

func (e *APIError) Unwrap() error { return ErrApplication }

// IsNetwork reports whether err is a NetworkError.
func IsNetwork(err error) bool { return errors.Is(err, ErrNetwork) }

// AsAPIError returns the APIError in err's chain, if any.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// ServerMessage returns the server-provided message carried by err, or
// fallback when err carries none.
func ServerMessage(err error, fallback string) string {
	if apiErr, ok := AsAPIError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
