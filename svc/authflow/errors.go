package authflow

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/fintrack/pkg/validator"
)

var (
	ErrBusy                 = errors.New("authflow: another attempt is in flight")
	ErrInvalidState         = errors.New("authflow: operation not allowed in current state")
	ErrStaleResponse        = errors.New("authflow: response belongs to an abandoned attempt")
	ErrIncompleteSession    = errors.New("authflow: server returned an incomplete session")
	ErrMissingTempToken     = errors.New("authflow: server requested 2FA without a temp token")
	ErrNotAuthenticated     = errors.New("authflow: not signed in")
	ErrInvalidIdentityToken = errors.New("authflow: identity token cannot be decoded")
)

// FlowError is a failed attempt. Message is safe to show to the user.
type FlowError struct {
	Op      string
	Message string
	Err     error
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("authflow: %s: %v", e.Op, e.Err)
}

func (e *FlowError) Unwrap() error { return e.Err }

// Message returns the text a user should see for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe.Message
	}
	if ve := validator.ExtractValidationErrors(err); ve != nil {
		return ve.First()
	}
	switch {
	case errors.Is(err, ErrBusy):
		return "Please wait for the current request to finish"
	case errors.Is(err, ErrNotAuthenticated):
		return "Please sign in first"
	case errors.Is(err, ErrInvalidState):
		return "This step is not available right now"
	}
	return err.Error()
}
