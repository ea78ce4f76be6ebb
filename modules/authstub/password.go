package authstub

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/fintrack/pkg/authapi"
	"github.com/dmitrymomot/fintrack/pkg/logger"
	"github.com/dmitrymomot/fintrack/pkg/sanitizer"
	"github.com/dmitrymomot/fintrack/pkg/totp"
	"github.com/dmitrymomot/fintrack/pkg/validator"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type credentialsRequest struct {
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

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !b.decode(w, r, &req) {
		return
	}
	req.Email = sanitizer.NormalizeEmail(req.Email)
	if err := validator.Apply(
		validator.Required("name", req.Name),
		validator.ValidEmail("email", req.Email),
		validator.MinLen("password", req.Password, minPasswordLen),
	); err != nil {
		b.writeInvalid(w, r, err)
		return
	}

	hash, err := b.hash(req.Password)
	if err != nil {
		b.log.ErrorContext(r.Context(), "failed to hash password", logger.Error(err))
		b.writeError(w, r, http.StatusInternalServerError, "Registration failed")
		return
	}

	b.store.mu.Lock()
	if _, taken := b.store.userByEmail(req.Email); taken {
		b.store.mu.Unlock()
		b.writeError(w, r, statusFor(ErrEmailTaken), "Email already registered")
		return
	}
	u := b.store.insert(&user{Name: req.Name, Email: req.Email, Hash: hash, Verified: !b.requireVerification})
	var notify func()
	if b.requireVerification {
		notify, err = b.issueCode(b.store.verify, CodeVerification, u.Email)
	}
	b.store.mu.Unlock()

	if err != nil {
		b.writeError(w, r, http.StatusInternalServerError, "Registration failed")
		return
	}
	if notify != nil {
		notify()
	}

	b.log.InfoContext(r.Context(), "user registered", logger.UserID(u.ID))
	msg := "Registration successful"
	if b.requireVerification {
		msg = "Registration successful. Please verify your email."
	}
	b.writeJSON(w, r, http.StatusOK, authapi.RegisterResult{Email: u.Email, Message: msg})
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !b.decode(w, r, &req) {
		return
	}
	req.Email = sanitizer.NormalizeEmail(req.Email)

	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	u, ok := b.store.userByEmail(req.Email)
	if !ok || len(u.Hash) == 0 || bcrypt.CompareHashAndPassword(u.Hash, []byte(req.Password)) != nil {
		b.writeError(w, r, statusFor(ErrInvalidCredentials), "Invalid email or password")
		return
	}

	if !u.Verified {
		b.writeJSON(w, r, http.StatusForbidden, errorResponse{
			Error:                "Please verify your email before signing in",
			RequiresVerification: true,
			Email:                u.Email,
		})
		return
	}

	if u.twoFactor() {
		tok := uuid.NewString()
		b.store.temp[tok] = tempToken{userID: u.ID, expires: b.now().Add(b.tempTokenTTL)}
		b.writeJSON(w, r, http.StatusOK, authapi.AuthResult{Requires2FA: true, TempToken: tok})
		return
	}

	b.writeJSON(w, r, http.StatusOK, b.issueSession(u))
}

func (b *Backend) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !b.decode(w, r, &req) {
		return
	}
	req.Email = sanitizer.NormalizeEmail(req.Email)

	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	u, ok := b.store.userByEmail(req.Email)
	if !ok || !takeCode(b.store.verify, req.Email, req.OTP, b.now()) {
		b.writeError(w, r, statusFor(ErrInvalidCode), "Invalid or expired verification code")
		return
	}
	u.Verified = true

	b.log.InfoContext(r.Context(), "email verified", logger.UserID(u.ID))
	b.writeJSON(w, r, http.StatusOK, b.issueSession(u))
}

// handleResendVerification always answers 200 so it cannot be used to probe
// for accounts.
func (b *Backend) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !b.decode(w, r, &req) {
		return
	}
	req.Email = sanitizer.NormalizeEmail(req.Email)

	b.store.mu.Lock()
	var notify func()
	var err error
	if u, ok := b.store.userByEmail(req.Email); ok && !u.Verified {
		notify, err = b.issueCode(b.store.verify, CodeVerification, u.Email)
	}
	b.store.mu.Unlock()

	if err != nil {
		b.log.ErrorContext(r.Context(), "failed to issue verification code", logger.Error(err))
	}
	if notify != nil {
		notify()
	}
	b.writeJSON(w, r, http.StatusOK, messageResponse{Message: "Verification code sent"})
}

// handleValidateTwoFactor accepts a TOTP code or an unused backup code. The
// temp token is consumed on success only.
func (b *Backend) handleValidateTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req twoFactorRequest
	if !b.decode(w, r, &req) {
		return
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	tmp, ok := b.store.temp[req.TempToken]
	if !ok || b.now().After(tmp.expires) {
		delete(b.store.temp, req.TempToken)
		b.writeError(w, r, statusFor(ErrTokenExpired), "Session expired. Please sign in again.")
		return
	}
	u, ok := b.store.users[tmp.userID]
	if !ok {
		b.writeError(w, r, statusFor(ErrTokenExpired), "Session expired. Please sign in again.")
		return
	}

	if !totp.ValidateAt(u.TOTPSecret, req.Code, b.now()) && !u.useBackupCode(req.Code) {
		b.writeError(w, r, statusFor(ErrInvalidCredentials), "Invalid 2FA code")
		return
	}
	delete(b.store.temp, req.TempToken)

	b.writeJSON(w, r, http.StatusOK, b.issueSession(u))
}

// useBackupCode must be called with the store lock held.
func (u *user) useBackupCode(n int) bool {
	if n < 0 {
		return false
	}
	code := fmt.Sprintf("%0*d", totp.BackupCodeDigits, n)
	for i, hashed := range u.BackupCodes {
		if totp.VerifyBackupCode(code, hashed) {
			u.BackupCodes = append(u.BackupCodes[:i], u.BackupCodes[i+1:]...)
			return true
		}
	}
	return false
}

// handleForgotPassword always answers 200.
func (b *Backend) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !b.decode(w, r, &req) {
		return
	}
	req.Email = sanitizer.NormalizeEmail(req.Email)

	b.store.mu.Lock()
	var notify func()
	var err error
	if u, ok := b.store.userByEmail(req.Email); ok {
		notify, err = b.issueCode(b.store.reset, CodePasswordReset, u.Email)
	}
	b.store.mu.Unlock()

	if err != nil {
		b.log.ErrorContext(r.Context(), "failed to issue reset code", logger.Error(err))
	}
	if notify != nil {
		notify()
	}
	b.writeJSON(w, r, http.StatusOK, messageResponse{Message: "If the account exists, a reset code was sent"})
}

func (b *Backend) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !b.decode(w, r, &req) {
		return
	}
	req.Email = sanitizer.NormalizeEmail(req.Email)
	if err := validator.Apply(validator.MinLen("newPassword", req.NewPassword, minPasswordLen)); err != nil {
		b.writeInvalid(w, r, err)
		return
	}

	hash, err := b.hash(req.NewPassword)
	if err != nil {
		b.writeError(w, r, http.StatusInternalServerError, "Failed to reset password")
		return
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	u, ok := b.store.userByEmail(req.Email)
	if !ok || !takeCode(b.store.reset, req.Email, req.OTP, b.now()) {
		b.writeError(w, r, statusFor(ErrInvalidCode), "Invalid or expired reset code")
		return
	}
	u.Hash = hash
	// the emailed code proves the address
	u.Verified = true

	b.log.InfoContext(r.Context(), "password reset", logger.UserID(u.ID))
	b.writeJSON(w, r, http.StatusOK, messageResponse{Message: "Password reset successful"})
}
