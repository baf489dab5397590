package identity

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCreds    = "INVALID_CREDENTIALS"
	TextCodeProviderAuth    = "PROVIDER_AUTH_FAILED"
	TextCodeTokenInvalid    = "RESET_TOKEN_INVALID"
	TextCodeTokenExpired    = "RESET_TOKEN_EXPIRED"
	TextCodeWeakPassword    = "WEAK_PASSWORD"
	TextCodeEmailExists     = "EMAIL_EXISTS"
	TextCodeTooManyAttempts = "TOO_MANY_LOGIN_ATTEMPTS"
	TextCodeUserNotFound    = "USER_NOT_FOUND"
)

// ErrInvalidCredentials covers unknown emails and wrong passwords alike so
// callers cannot tell the two apart.
var ErrInvalidCredentials = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrProviderAuthFailure is the generic failure for external identity
// providers. Provider detail stays in logs, never in this error.
var ErrProviderAuthFailure = errors.New("unable to authenticate with provider", errors.CategoryAuth).
	WithTextCode(TextCodeProviderAuth).
	WithCode(errors.CodeUnauthorized)

// ErrResetTokenInvalid is returned when no user holds the presented token.
var ErrResetTokenInvalid = errors.New("invalid password reset token", errors.CategoryBadInput).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(errors.CodeBadRequest)

// ErrResetTokenExpired is returned when the token aged past its window.
var ErrResetTokenExpired = errors.New("password reset token has expired", errors.CategoryValidation).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeBadRequest)

// ErrPasswordTooWeak is returned when a new password fails the policy.
var ErrPasswordTooWeak = errors.New("password does not meet the minimum strength policy", errors.CategoryValidation).
	WithTextCode(TextCodeWeakPassword).
	WithCode(errors.CodeBadRequest)

// ErrEmailAlreadyExists is returned on duplicate registration.
var ErrEmailAlreadyExists = errors.New("email already exists", errors.CategoryConflict).
	WithTextCode(TextCodeEmailExists).
	WithCode(errors.CodeConflict)

// ErrTooManyLoginAttempts is returned while the cooldown window holds.
var ErrTooManyLoginAttempts = errors.New("too many login attempts", errors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts)

// ErrUserNotFound is the engine-level not-found error for users.
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrNoEmptyString rejects empty passwords before hashing.
var ErrNoEmptyString = errors.New("value cannot be an empty string", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest)

// IsTokenExpiredError checks for expired session tokens, including legacy
// string-matched errors from the JWT layer.
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
