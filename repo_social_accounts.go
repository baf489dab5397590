package identity

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type SocialAccounts interface {
	repository.Repository[*SocialAccount]

	GetByProviderSubject(ctx context.Context, provider, providerUserID string) (*SocialAccount, error)
	GetByProviderSubjectTx(ctx context.Context, tx bun.IDB, provider, providerUserID string) (*SocialAccount, error)
	Link(ctx context.Context, userID uuid.UUID, provider, providerUserID, email string) (*SocialAccount, error)
	LinkTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, provider, providerUserID, email string) (*SocialAccount, error)
}

type socialAccounts struct {
	repository.Repository[*SocialAccount]
	db *bun.DB
}

var _ SocialAccounts = (*socialAccounts)(nil)

func NewSocialAccountsRepository(db *bun.DB) SocialAccounts {
	repo := repository.NewRepository[*SocialAccount](db, repository.ModelHandlers[*SocialAccount]{
		NewRecord: func() *SocialAccount { return &SocialAccount{} },
		GetID: func(s *SocialAccount) uuid.UUID {
			if s == nil {
				return uuid.Nil
			}
			return s.ID
		},
		SetID: func(s *SocialAccount, id uuid.UUID) {
			if s != nil {
				s.ID = id
			}
		},
	})

	return &socialAccounts{
		Repository: repo,
		db:         db,
	}
}

func (a *socialAccounts) GetByProviderSubject(ctx context.Context, provider, providerUserID string) (*SocialAccount, error) {
	return a.GetByProviderSubjectTx(ctx, a.db, provider, providerUserID)
}

func (a *socialAccounts) GetByProviderSubjectTx(ctx context.Context, tx bun.IDB, provider, providerUserID string) (*SocialAccount, error) {
	record := &SocialAccount{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.provider = ?", provider).
		Where("?TableAlias.provider_user_id = ?", providerUserID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"provider": provider})
		}
		return nil, err
	}

	return record, nil
}

func (a *socialAccounts) Link(ctx context.Context, userID uuid.UUID, provider, providerUserID, email string) (*SocialAccount, error) {
	return a.LinkTx(ctx, a.db, userID, provider, providerUserID, email)
}

func (a *socialAccounts) LinkTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, provider, providerUserID, email string) (*SocialAccount, error) {
	record := &SocialAccount{
		ID:             uuid.New(),
		UserID:         userID,
		Provider:       provider,
		ProviderUserID: providerUserID,
		Email:          email,
	}
	return a.Repository.CreateTx(ctx, tx, record)
}
