package totp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
)

// BackupCodeDigits is the length of a backup code.
const BackupCodeDigits = 8

var backupCodeSpace = big.NewInt(100_000_000)

// GenerateBackupCodes returns count random 8-digit codes. They are numeric
// so they can be typed into the same field as a TOTP code.
func GenerateBackupCodes(count int) ([]string, error) {
	if count < 1 {
		return nil, ErrInvalidBackupCodeCount
	}

	codes := make([]string, count)
	for i := range count {
		n, err := rand.Int(rand.Reader, backupCodeSpace)
		if err != nil {
			return nil, errors.Join(ErrFailedToGenerateBackupCode, err)
		}
		codes[i] = fmt.Sprintf("%0*d", BackupCodeDigits, n.Int64())
	}
	return codes, nil
}

// HashBackupCode returns the SHA-256 hex digest stored in place of the code.
func HashBackupCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// VerifyBackupCode compares code with a stored hash in constant time.
func VerifyBackupCode(code, hashed string) bool {
	return subtle.ConstantTimeCompare([]byte(HashBackupCode(code)), []byte(hashed)) == 1
}
