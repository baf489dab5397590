package identity

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/goliatone/go-errors"
)

// ResetTokenWindow is how long a reset token stays valid.
var ResetTokenWindow = "1h"

// MinPasswordLength is the default minimum strength policy.
var MinPasswordLength = 8

// NewResetToken returns a cryptographically random opaque token.
func NewResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate reset token")
	}
	return hex.EncodeToString(buf), nil
}

// ValidatePasswordStrength enforces the minimum policy for new passwords.
func ValidatePasswordStrength(password string, minLength int) error {
	if minLength < 1 {
		minLength = MinPasswordLength
	}

	if password == "" {
		return ErrNoEmptyString
	}

	if len(password) < minLength {
		return ErrPasswordTooWeak.Clone().
			WithMetadata(map[string]any{"min_length": minLength})
	}

	return nil
}
