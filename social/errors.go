package social

import "github.com/goliatone/go-errors"

const (
	TextCodeTokenInvalid     = "social_token_invalid"
	TextCodeTokenExpired     = "social_token_expired"
	TextCodeAudienceMismatch = "social_audience_mismatch"
	TextCodeIssuerMismatch   = "social_issuer_mismatch"
	TextCodeProviderCall     = "social_provider_call_failed"
)

// ErrTokenInvalid is returned for malformed, unsigned, or revoked tokens.
var ErrTokenInvalid = errors.New("provider token is invalid", errors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned when the provider token aged out.
var ErrTokenExpired = errors.New("provider token has expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrAudienceMismatch is returned when the token was minted for another app.
var ErrAudienceMismatch = errors.New("provider token audience mismatch", errors.CategoryAuth).
	WithTextCode(TextCodeAudienceMismatch).
	WithCode(errors.CodeUnauthorized)

// ErrIssuerMismatch is returned when the token issuer is not the provider.
var ErrIssuerMismatch = errors.New("provider token issuer mismatch", errors.CategoryAuth).
	WithTextCode(TextCodeIssuerMismatch).
	WithCode(errors.CodeUnauthorized)

// ErrProviderCall is returned when the provider endpoint cannot be reached
// or answers with garbage. The transport detail goes in metadata for logs.
var ErrProviderCall = errors.New("provider call failed", errors.CategoryAuth).
	WithTextCode(TextCodeProviderCall).
	WithCode(errors.CodeUnauthorized)
