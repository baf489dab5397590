package identity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	identity "github.com/calderhq/identity"
	"github.com/calderhq/identity/social"
)

type stubVerifier struct {
	name     string
	identity *social.ExternalIdentity
	err      error
}

func (s *stubVerifier) Name() string {
	if s.name == "" {
		return "stub"
	}
	return s.name
}

func (s *stubVerifier) Verify(ctx context.Context, token string) (*social.ExternalIdentity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.identity, nil
}

func TestSocialLoginProvisionsNewUser(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	auth, tokens := newTestAuthenticator(repo)

	verifier := &stubVerifier{
		name: "google",
		identity: &social.ExternalIdentity{
			Provider:       "google",
			ProviderUserID: "google-subject-1",
			Email:          "pepe.rone@example.com",
			EmailVerified:  true,
			FirstName:      "Pepe",
			LastName:       "Rone",
		},
	}

	handler := identity.NewSocialLoginHandler(repo, auth, verifier).WithLogger(testLogger{})

	session, err := handler.Login(ctx, "a-provider-token")
	require.NoError(t, err)
	require.NotNil(t, session.User)
	assert.Equal(t, "pepe.rone@example.com", session.User.Email)

	claims, err := tokens.Validate(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID.String(), claims.UserID())

	// The provisioned account is linked for the next login.
	link, err := repo.social.GetByProviderSubject(ctx, "google", "google-subject-1")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, link.UserID)

	// The random local credential never matches a guessed password.
	stored, err := repo.users.GetByEmail(ctx, "pepe.rone@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.Error(t, identity.ComparePasswordAndHash("", stored.PasswordHash))
}

func TestSocialLoginLinksExistingUserByEmail(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	user := seedUser(t, repo, "pepe.rone@example.com", "secretpassword123")
	auth, _ := newTestAuthenticator(repo)

	verifier := &stubVerifier{
		name: "google",
		identity: &social.ExternalIdentity{
			Provider:       "google",
			ProviderUserID: "google-subject-1",
			Email:          "pepe.rone@example.com",
			EmailVerified:  true,
		},
	}

	handler := identity.NewSocialLoginHandler(repo, auth, verifier).WithLogger(testLogger{})

	session, err := handler.Login(ctx, "a-provider-token")
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.User.ID)

	link, err := repo.social.GetByProviderSubject(ctx, "google", "google-subject-1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, link.UserID)
}

func TestSocialLoginResolvesExistingLinkFirst(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	user := seedUser(t, repo, "pepe.rone@example.com", "secretpassword123")
	auth, _ := newTestAuthenticator(repo)

	_, err := repo.social.Link(ctx, user.ID, "facebook", "fb-subject-9", user.Email)
	require.NoError(t, err)

	verifier := &stubVerifier{
		name: "facebook",
		identity: &social.ExternalIdentity{
			Provider:       "facebook",
			ProviderUserID: "fb-subject-9",
			// Provider email changed since linking; the link still wins.
			Email:         "renamed@example.com",
			EmailVerified: true,
		},
	}

	handler := identity.NewSocialLoginHandler(repo, auth, verifier).WithLogger(testLogger{})

	session, err := handler.Login(ctx, "a-provider-token")
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.User.ID)
	assert.Equal(t, user.Email, session.User.Email)
}

func TestSocialLoginUnverifiedEmailProvisionsSeparateAccount(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	user := seedUser(t, repo, "pepe.rone@example.com", "secretpassword123")
	auth, _ := newTestAuthenticator(repo)

	verifier := &stubVerifier{
		name: "facebook",
		identity: &social.ExternalIdentity{
			Provider:       "facebook",
			ProviderUserID: "fb-subject-1",
			Email:          "pepe.rone@example.com",
			EmailVerified:  false,
		},
	}

	handler := identity.NewSocialLoginHandler(repo, auth, verifier).WithLogger(testLogger{})

	session, err := handler.Login(ctx, "a-provider-token")
	require.NoError(t, err)

	// An unverified email must not capture the existing local account.
	assert.NotEqual(t, user.ID, session.User.ID)
}

func TestSocialLoginVerifierFailureIsGeneric(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	auth, _ := newTestAuthenticator(repo)

	verifier := &stubVerifier{
		name: "google",
		err:  social.ErrTokenExpired,
	}

	handler := identity.NewSocialLoginHandler(repo, auth, verifier).WithLogger(testLogger{})

	session, err := handler.Login(ctx, "an-expired-token")
	assert.Nil(t, session)
	assert.ErrorIs(t, err, identity.ErrProviderAuthFailure)

	session, err = handler.Login(ctx, "")
	assert.Nil(t, session)
	assert.ErrorIs(t, err, identity.ErrProviderAuthFailure)
}
