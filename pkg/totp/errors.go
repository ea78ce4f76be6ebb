package totp

import "errors"

var (
	ErrMissingIssuer              = errors.New("totp: missing issuer")
	ErrMissingAccountName         = errors.New("totp: missing account name")
	ErrFailedToGenerateSecretKey  = errors.New("totp: failed to generate secret key")
	ErrFailedToGenerateCode       = errors.New("totp: failed to generate code")
	ErrInvalidBackupCodeCount     = errors.New("totp: backup code count must be greater than 0")
	ErrFailedToGenerateBackupCode = errors.New("totp: failed to generate backup code")
)
