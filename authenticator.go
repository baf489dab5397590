package identity

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
)

// MaxLoginAttempts is the maximum number of attempts a user gets
// in a period
var MaxLoginAttempts = 5

// CoolDownPeriod is the period in which we enforce a cool down
var CoolDownPeriod = "24h"

// UserTracker is the store slice the authenticator needs.
type UserTracker interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackSuccessfulLogin(ctx context.Context, user *User) error
}

// Authenticator validates email+password pairs and mints sessions.
type Authenticator struct {
	store        UserTracker
	tokenService TokenService
	expiration   time.Duration
	logger       Logger
}

func NewAuthenticator(store UserTracker, tokenService TokenService, cfg Config) *Authenticator {
	return &Authenticator{
		store:        store,
		tokenService: tokenService,
		expiration:   time.Duration(cfg.GetTokenExpiration()) * time.Hour,
		logger:       defLogger{},
	}
}

func (a *Authenticator) WithLogger(logger Logger) *Authenticator {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Authenticate verifies the credential pair and returns a session result.
// Unknown emails and wrong passwords produce the same error after the same
// amount of hashing work, so callers cannot probe for registered addresses.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (*SessionResult, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := a.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, CompareDummyHash(password)
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if user.LoginAttemptAt != nil {
		expired, err := IsOutsideWindow(*user.LoginAttemptAt, CoolDownPeriod)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to calculate login attempt cooldown")
		}

		if expired {
			user.LoginAttempts = 0
		}
	}

	// too many attempts in the window, cool off
	if user.LoginAttempts > MaxLoginAttempts {
		return nil, ErrTooManyLoginAttempts
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if err2 := a.store.TrackAttemptedLogin(ctx, user); err2 != nil {
			return nil, errors.Wrap(err2, errors.CategoryInternal, "failed to track login attempt")
		}
		return nil, ErrInvalidCredentials
	}

	if err := a.store.TrackSuccessfulLogin(ctx, user); err != nil {
		a.logger.Error("failed to track successful login", "error", err)
	}

	return a.MintSession(user)
}

// MintSession produces the uniform session result for an already verified
// user. The social login path shares it so both login methods return the
// same shape.
func (a *Authenticator) MintSession(user *User) (*SessionResult, error) {
	token, err := a.tokenService.Generate(user)
	if err != nil {
		a.logger.Error("failed to generate session token", "error", err)
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to generate session token")
	}

	// Report the expiry actually embedded in the token; the configured
	// duration only stands in if the claims cannot be read back.
	expiresAt := time.Now().Add(a.expiration)
	if claims, err := a.tokenService.Validate(token); err == nil {
		expiresAt = claims.Expires()
	}

	return newSessionResult(token, user, expiresAt), nil
}
