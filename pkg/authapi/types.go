package authapi

import (
	"strings"

	"github.com/dmitrymomot/fintrack/pkg/session"
)

// Provider names an OAuth identity provider.
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderApple  Provider = "apple"
)

func (p Provider) Valid() bool {
	return p == ProviderGoogle || p == ProviderApple
}

// ParseProvider accepts a provider name in any case.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", ErrUnsupportedProvider
	}
	return p, nil
}

// AuthResult is the body of login, verify-email, 2fa/validate and oauth.
// Login may instead return Requires2FA with a TempToken.
type AuthResult struct {
	Token          string `json:"token"`
	UserID         int64  `json:"userId"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	Message        string `json:"message,omitempty"`

	Requires2FA bool   `json:"requires2FA,omitempty"`
	TempToken   string `json:"tempToken,omitempty"`
}

// Session converts the result into the persisted form.
func (r AuthResult) Session() session.Session {
	return session.Session{
		Token:          r.Token,
		UserID:         r.UserID,
		Name:           r.Name,
		Email:          r.Email,
		ProfilePicture: r.ProfilePicture,
	}
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResult struct {
	Email   string `json:"email"`
	Message string `json:"message,omitempty"`
}

// OAuthProfile is what the client forwards after decoding a provider token.
type OAuthProfile struct {
	OAuthID        string `json:"oauthId"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// TwoFactorEnrollment is returned when a user turns on 2FA.
type TwoFactorEnrollment struct {
	Secret      string   `json:"secret"`
	OTPAuthURL  string   `json:"otpauthUrl"`
	QRCode      string   `json:"qrCode"`
	BackupCodes []string `json:"backupCodes"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type verifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type twoFactorRequest struct {
	TempToken string `json:"tempToken"`
	Code      int    `json:"code"`
}

type resetRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

type changePasswordRequest struct {
	UserID          int64  `json:"userId"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type deleteAccountRequest struct {
	Password string `json:"password"`
}

type messageResponse struct {
	Message string `json:"message,omitempty"`
}

// errorBody covers every failure shape the backend returns.
type errorBody struct {
	Error                string `json:"error"`
	Message              string `json:"message"`
	RequiresVerification bool   `json:"requiresVerification"`
	Email                string `json:"email"`
}
