// Package google verifies Google-issued ID tokens: JWKS signature check
// plus issuer and audience validation.
package google

import (
	"context"
	"log"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"

	"github.com/calderhq/identity/social"
)

const defaultJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

var defaultIssuers = []string{"https://accounts.google.com", "accounts.google.com"}

// Config holds Google ID token verification settings.
type Config struct {
	// ClientID is the OAuth client id the token audience must match.
	ClientID string

	JWKSURL string
	Issuers []string

	// KeyFunc overrides JWKS fetching; tests inject a local key here.
	KeyFunc jwt.Keyfunc

	RefreshInterval time.Duration
}

// Verifier implements social.TokenVerifier for Google ID tokens.
type Verifier struct {
	config  Config
	keyFunc jwt.Keyfunc
}

// New creates a Google verifier. Unless a KeyFunc is injected it starts a
// background-refreshing JWKS fetcher against Google's cert endpoint.
func New(cfg Config) (*Verifier, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("google: client id is required", errors.CategoryBadInput)
	}

	if cfg.JWKSURL == "" {
		cfg.JWKSURL = defaultJWKSURL
	}
	if len(cfg.Issuers) == 0 {
		cfg.Issuers = defaultIssuers
	}
	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = time.Hour
	}

	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
			RefreshErrorHandler: func(err error) {
				log.Printf("failed to do a background refresh of google JWK set: %s", err)
			},
			RefreshInterval:   cfg.RefreshInterval,
			RefreshRateLimit:  time.Minute * 5,
			RefreshTimeout:    time.Second * 10,
			RefreshUnknownKID: true,
		})
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryOperation, "google: failed to fetch JWK set")
		}
		keyFunc = jwks.Keyfunc
	}

	return &Verifier{
		config:  cfg,
		keyFunc: keyFunc,
	}, nil
}

// Name implements social.TokenVerifier.
func (v *Verifier) Name() string {
	return "google"
}

type idTokenClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// Verify implements social.TokenVerifier.
func (v *Verifier) Verify(ctx context.Context, idToken string) (*social.ExternalIdentity, error) {
	select {
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), errors.CategoryOperation, "google: context cancelled")
	default:
	}

	claims := &idTokenClaims{}
	token, err := jwt.ParseWithClaims(idToken, claims, v.keyFunc,
		jwt.WithAudience(v.config.ClientID),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{"RS256", "ES256"}),
	)

	if err != nil {
		return nil, normalizeTokenError(err)
	}

	if token == nil || !token.Valid {
		return nil, social.ErrTokenInvalid.Clone()
	}

	if !v.issuerAllowed(claims.Issuer) {
		return nil, social.ErrIssuerMismatch.Clone().
			WithMetadata(map[string]any{"issuer": claims.Issuer})
	}

	if claims.Subject == "" {
		return nil, social.ErrTokenInvalid.Clone()
	}

	return &social.ExternalIdentity{
		Provider:       v.Name(),
		ProviderUserID: claims.Subject,
		Email:          claims.Email,
		EmailVerified:  claims.EmailVerified,
		Name:           claims.Name,
		FirstName:      claims.GivenName,
		LastName:       claims.FamilyName,
		AvatarURL:      claims.Picture,
	}, nil
}

func (v *Verifier) issuerAllowed(issuer string) bool {
	for _, allowed := range v.config.Issuers {
		if issuer == allowed {
			return true
		}
	}
	return false
}

func normalizeTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return social.ErrTokenExpired.Clone().
			WithMetadata(map[string]any{"provider": "google", "cause": err.Error()})
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return social.ErrAudienceMismatch.Clone().
			WithMetadata(map[string]any{"provider": "google", "cause": err.Error()})
	default:
		return social.ErrTokenInvalid.Clone().
			WithMetadata(map[string]any{"provider": "google", "cause": err.Error()})
	}
}
