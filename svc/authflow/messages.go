package authflow

import (
	"errors"

	"github.com/dmitrymomot/fintrack/pkg/authapi"
)

type operation string

const (
	opLogin           operation = "login"
	opRegister        operation = "register"
	opVerify          operation = "verify_email"
	opResend          operation = "resend_verification"
	opTwoFactor       operation = "two_factor"
	opOAuth           operation = "oauth"
	opForgotPassword  operation = "forgot_password"
	opResetPassword   operation = "reset_password"
	opChangePassword  operation = "change_password"
	opDeleteAccount   operation = "delete_account"
	opEnableTwoFactor operation = "enable_two_factor"
)

// failureText holds the message shown when no response arrived and the
// fallback used when a rejection carries no server message.
type failureText struct {
	network  string
	rejected string
}

var failureTexts = map[operation]failureText{
	opLogin:           {"Login failed. Please try again.", "Login failed"},
	opRegister:        {"Registration failed. Please try again.", "Registration failed"},
	opVerify:          {"Verification failed", "Invalid verification code"},
	opResend:          {"Failed to resend code", "Failed to resend code"},
	opTwoFactor:       {"2FA validation failed", "Invalid 2FA code"},
	opForgotPassword:  {"Failed to send reset code", "Failed to send reset code"},
	opResetPassword:   {"Reset failed", "Failed to reset password"},
	opChangePassword:  {"Error changing password", "Failed to change password"},
	opDeleteAccount:   {"Error deleting account", "Failed to delete account"},
	opEnableTwoFactor: {"Failed to enable 2FA", "Failed to enable 2FA"},
}

var oauthTexts = map[authapi.Provider]string{
	authapi.ProviderGoogle: "Google login failed",
	authapi.ProviderApple:  "Apple login failed",
}

// describe picks the user-facing message for a failed operation. Only a
// non-2xx response may contribute a server message.
func describe(op operation, provider authapi.Provider, err error) string {
	if op == opOAuth {
		return authapi.ServerMessage(err, oauthTexts[provider])
	}
	text := failureTexts[op]
	var apiErr *authapi.APIError
	if !errors.As(err, &apiErr) {
		return text.network
	}
	return authapi.ServerMessage(err, text.rejected)
}
