package authstub

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/fintrack/pkg/authapi"
	"github.com/dmitrymomot/fintrack/pkg/logger"
	"github.com/dmitrymomot/fintrack/pkg/qrcode"
	"github.com/dmitrymomot/fintrack/pkg/totp"
	"github.com/dmitrymomot/fintrack/pkg/validator"
)

type changePasswordRequest struct {
	UserID          int64  `json:"userId"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type deleteAccountRequest struct {
	Password string `json:"password"`
}

func (b *Backend) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !b.decode(w, r, &req) {
		return
	}
	if req.UserID != callerID(r.Context()) {
		b.writeError(w, r, statusFor(ErrForbidden), "Forbidden")
		return
	}
	if err := validator.Apply(validator.MinLen("newPassword", req.NewPassword, minPasswordLen)); err != nil {
		b.writeInvalid(w, r, err)
		return
	}

	hash, err := b.hash(req.NewPassword)
	if err != nil {
		b.writeError(w, r, http.StatusInternalServerError, "Failed to change password")
		return
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	u, ok := b.store.users[req.UserID]
	if !ok {
		b.writeError(w, r, statusFor(ErrUserNotFound), "User not found")
		return
	}
	if len(u.Hash) > 0 && bcrypt.CompareHashAndPassword(u.Hash, []byte(req.CurrentPassword)) != nil {
		b.writeError(w, r, statusFor(ErrInvalidCredentials), "Current password is incorrect")
		return
	}
	u.Hash = hash

	b.log.InfoContext(r.Context(), "password changed", logger.UserID(u.ID))
	b.writeJSON(w, r, http.StatusOK, messageResponse{Message: "Password changed successfully"})
}

// handleDeleteAccount removes the user and revokes every token they hold.
// Accounts created through a provider have no password to confirm.
func (b *Backend) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := b.pathUser(w, r)
	if !ok {
		return
	}
	var req deleteAccountRequest
	if !b.decode(w, r, &req) {
		return
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	u, found := b.store.users[id]
	if !found {
		b.writeError(w, r, statusFor(ErrUserNotFound), "User not found")
		return
	}
	if len(u.Hash) > 0 && bcrypt.CompareHashAndPassword(u.Hash, []byte(req.Password)) != nil {
		b.writeError(w, r, statusFor(ErrInvalidCredentials), "Password is incorrect")
		return
	}
	b.store.remove(id)

	b.log.InfoContext(r.Context(), "account deleted", logger.UserID(id))
	b.writeJSON(w, r, http.StatusOK, messageResponse{Message: "Account deleted"})
}

// handleEnableTwoFactor enrols a fresh secret, replacing any previous one,
// and returns plain backup codes once.
func (b *Backend) handleEnableTwoFactor(w http.ResponseWriter, r *http.Request) {
	id, ok := b.pathUser(w, r)
	if !ok {
		return
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	u, found := b.store.users[id]
	if !found {
		b.writeError(w, r, statusFor(ErrUserNotFound), "User not found")
		return
	}

	key, err := totp.Enroll(b.issuer, u.Email)
	if err != nil {
		b.log.ErrorContext(r.Context(), "failed to enrol totp", logger.Error(err))
		b.writeError(w, r, http.StatusInternalServerError, "Failed to enable 2FA")
		return
	}
	codes, err := totp.GenerateBackupCodes(backupCodeCount)
	if err != nil {
		b.writeError(w, r, http.StatusInternalServerError, "Failed to enable 2FA")
		return
	}
	qr, err := qrcode.DataURI(key.URL, qrSize)
	if err != nil {
		b.writeError(w, r, http.StatusInternalServerError, "Failed to enable 2FA")
		return
	}

	hashed := make([]string, len(codes))
	for i, c := range codes {
		hashed[i] = totp.HashBackupCode(c)
	}
	u.TOTPSecret = key.Secret
	u.BackupCodes = hashed

	b.log.InfoContext(r.Context(), "two-factor enabled", logger.UserID(u.ID))
	b.writeJSON(w, r, http.StatusOK, authapi.TwoFactorEnrollment{
		Secret:      key.Secret,
		OTPAuthURL:  key.URL,
		QRCode:      qr,
		BackupCodes: codes,
	})
}

// pathUser parses {userID} and checks it against the bearer token.
func (b *Backend) pathUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		b.writeError(w, r, http.StatusBadRequest, "Invalid user id")
		return 0, false
	}
	if id != callerID(r.Context()) {
		b.writeError(w, r, statusFor(ErrForbidden), "Forbidden")
		return 0, false
	}
	return id, true
}
