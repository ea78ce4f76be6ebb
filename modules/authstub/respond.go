package authstub

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrymomot/fintrack/pkg/logger"
	"github.com/dmitrymomot/fintrack/pkg/validator"
)

const maxBodyBytes = 1 << 16

type errorResponse struct {
	Error                string `json:"error"`
	RequiresVerification bool   `json:"requiresVerification,omitempty"`
	Email                string `json:"email,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (b *Backend) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		b.writeError(w, r, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (b *Backend) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		b.log.ErrorContext(r.Context(), "failed to encode response", logger.Error(err))
	}
}

func (b *Backend) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	b.writeJSON(w, r, status, errorResponse{Error: msg})
}

// writeInvalid answers 400 with the first validation message.
func (b *Backend) writeInvalid(w http.ResponseWriter, r *http.Request, err error) {
	if ve := validator.ExtractValidationErrors(err); ve != nil {
		b.writeError(w, r, http.StatusBadRequest, ve.First())
		return
	}
	b.writeError(w, r, http.StatusBadRequest, err.Error())
}

// statusFor maps stub sentinels to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrTokenExpired), errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidCode):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
