package totp

import (
	"errors"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	ptotp "github.com/pquerna/otp/totp"
)

const (
	Digits = 6
	Period = 30
	Skew   = 1
)

// Key is a freshly enrolled secret.
type Key struct {
	Secret string
	URL    string
}

// Enroll generates a new secret for account under issuer.
func Enroll(issuer, account string) (*Key, error) {
	if issuer == "" {
		return nil, ErrMissingIssuer
	}
	if account == "" {
		return nil, ErrMissingAccountName
	}

	k, err := ptotp.Generate(ptotp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      Period,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, errors.Join(ErrFailedToGenerateSecretKey, err)
	}
	return &Key{Secret: k.Secret(), URL: k.URL()}, nil
}

// Validate reports whether code matches secret at the current time. The code
// is numeric, so leading zeros lost in transit are restored.
func Validate(secret string, code int) bool {
	return ValidateAt(secret, code, time.Now())
}

// ValidateAt is Validate for a fixed instant.
func ValidateAt(secret string, code int, at time.Time) bool {
	if code < 0 {
		return false
	}
	ok, err := ptotp.ValidateCustom(fmt.Sprintf("%06d", code), secret, at.UTC(), opts())
	return err == nil && ok
}

// GenerateCode returns the code for secret at the given instant.
func GenerateCode(secret string, at time.Time) (string, error) {
	code, err := ptotp.GenerateCodeCustom(secret, at.UTC(), opts())
	if err != nil {
		return "", errors.Join(ErrFailedToGenerateCode, err)
	}
	return code, nil
}

func opts() ptotp.ValidateOpts {
	return ptotp.ValidateOpts{
		Period:    Period,
		Skew:      Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}
