// Package totp enrols and checks time-based one-time passwords (RFC 6238)
// and numeric backup codes.
//
// Enrolment produces a base32 secret and an otpauth:// URL for authenticator
// apps:
//
//	key, err := totp.Enroll("FinTrack", "alice@example.com")
//	// show key.URL as a QR code, store key.Secret
//
// Codes are 6 digits, 30 second period, SHA1, with one step of clock skew
// accepted either side. Backup codes are 8 digits and are stored hashed.
package totp
