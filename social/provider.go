// Package social verifies externally issued identity tokens against their
// issuing provider and maps them to a provider-neutral identity value.
package social

import "context"

// ExternalIdentity is the verified identity a provider vouches for. It is
// transient: produced per request, never persisted as-is.
type ExternalIdentity struct {
	Provider       string
	ProviderUserID string
	Email          string
	EmailVerified  bool
	Name           string
	FirstName      string
	LastName       string
	AvatarURL      string
}

// TokenVerifier validates a provider-issued token (Google ID token,
// Facebook access token) and extracts the identity it asserts.
type TokenVerifier interface {
	// Name returns the provider identifier (e.g. "google", "facebook").
	Name() string

	// Verify checks the token against the provider and returns the verified
	// identity. Implementations perform network I/O and honor ctx deadlines.
	Verify(ctx context.Context, token string) (*ExternalIdentity, error)
}
