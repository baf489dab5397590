package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"

	"github.com/calderhq/identity/social"
)

type GoogleLoginMessage struct {
	IDToken string `json:"id_token"`
}

func (m GoogleLoginMessage) Type() string { return "user.login_google" }

type FacebookLoginMessage struct {
	AccessToken string `json:"access_token"`
}

func (m FacebookLoginMessage) Type() string { return "user.login_facebook" }

// SocialLoginHandler bridges a provider token into a local session. The
// caller only learns pass or fail; provider specific failure detail goes to
// the log, not the response.
type SocialLoginHandler struct {
	repo     RepositoryManager
	auth     *Authenticator
	verifier social.TokenVerifier
	logger   Logger
}

func NewSocialLoginHandler(repo RepositoryManager, auth *Authenticator, verifier social.TokenVerifier) *SocialLoginHandler {
	return &SocialLoginHandler{
		repo:     repo,
		auth:     auth,
		verifier: verifier,
		logger:   defLogger{},
	}
}

func (h *SocialLoginHandler) WithLogger(logger Logger) *SocialLoginHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *SocialLoginHandler) Login(ctx context.Context, token string) (*SessionResult, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during social login",
		)
	default:
		return h.login(ctx, token)
	}
}

func (h *SocialLoginHandler) login(ctx context.Context, token string) (*SessionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if token == "" {
		return nil, ErrProviderAuthFailure
	}

	ident, err := h.verifier.Verify(ctx, token)
	if err != nil {
		h.logger.Error("provider token verification failed",
			"provider", h.verifier.Name(),
			"error", err,
		)
		return nil, ErrProviderAuthFailure
	}

	user, err := h.resolveUser(ctx, ident)
	if err != nil {
		return nil, err
	}

	if err := h.repo.Users().TrackSuccessfulLogin(ctx, user); err != nil {
		h.logger.Error("failed to track social login", "error", err)
	}

	return h.auth.MintSession(user)
}

// resolveUser maps a verified external identity onto a local user: first by
// an existing provider link, then by verified email, else by provisioning a
// fresh account. Linking and provisioning run in one transaction.
func (h *SocialLoginHandler) resolveUser(ctx context.Context, ident *social.ExternalIdentity) (*User, error) {
	link, err := h.repo.SocialAccounts().GetByProviderSubject(ctx, ident.Provider, ident.ProviderUserID)
	if err == nil {
		user, err := h.repo.Users().GetByID(ctx, link.UserID.String())
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load linked user")
		}
		return user, nil
	}

	if !goerrors.IsNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up provider link")
	}

	var user *User
	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if ident.Email != "" && ident.EmailVerified {
			existing, err := h.repo.Users().GetByEmailTx(ctx, tx, ident.Email)
			if err == nil {
				user = existing
				_, err = h.repo.SocialAccounts().LinkTx(ctx, tx, user.ID, ident.Provider, ident.ProviderUserID, ident.Email)
				return err
			}
			if !goerrors.IsNotFound(err) {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up user by email")
			}
		}

		provisioned, err := h.provisionTx(ctx, tx, ident)
		if err != nil {
			return err
		}

		user = provisioned
		_, err = h.repo.SocialAccounts().LinkTx(ctx, tx, user.ID, ident.Provider, ident.ProviderUserID, ident.Email)
		return err
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "social login transaction failed")
	}

	return user, nil
}

// provisionTx creates a local account for a first time social login. The
// password hash is random and unknown to anyone: the account can only be
// entered through the provider until the user runs a password reset.
func (h *SocialLoginHandler) provisionTx(ctx context.Context, tx bun.IDB, ident *social.ExternalIdentity) (*User, error) {
	user := &User{
		Email:        ident.Email,
		FirstName:    ident.FirstName,
		LastName:     ident.LastName,
		AvatarURL:    ident.AvatarURL,
		PasswordHash: RandomPasswordHash(),
	}

	if user.FirstName == "" && ident.Name != "" {
		user.FirstName = ident.Name
	}

	created, err := h.repo.Users().CreateTx(ctx, tx, user)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to provision user")
	}

	return created, nil
}

// GoogleLoginHandler adapts SocialLoginHandler to the message dispatcher.
type GoogleLoginHandler struct {
	*SocialLoginHandler
}

func NewGoogleLoginHandler(repo RepositoryManager, auth *Authenticator, verifier social.TokenVerifier) *GoogleLoginHandler {
	return &GoogleLoginHandler{NewSocialLoginHandler(repo, auth, verifier)}
}

func (h *GoogleLoginHandler) Query(ctx context.Context, event GoogleLoginMessage) (*SessionResult, error) {
	return h.Login(ctx, event.IDToken)
}

// FacebookLoginHandler adapts SocialLoginHandler to the message dispatcher.
type FacebookLoginHandler struct {
	*SocialLoginHandler
}

func NewFacebookLoginHandler(repo RepositoryManager, auth *Authenticator, verifier social.TokenVerifier) *FacebookLoginHandler {
	return &FacebookLoginHandler{NewSocialLoginHandler(repo, auth, verifier)}
}

func (h *FacebookLoginHandler) Query(ctx context.Context, event FacebookLoginMessage) (*SessionResult, error) {
	return h.Login(ctx, event.AccessToken)
}
