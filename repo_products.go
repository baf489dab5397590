package identity

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Products interface {
	repository.Repository[*Product]

	// Query evaluates the specification against the full candidate set and
	// returns one page of matches with its paging metadata.
	Query(ctx context.Context, spec *Specification, page Page) (*PagedResult[*Product], error)
	QueryTx(ctx context.Context, tx bun.IDB, spec *Specification, page Page) (*PagedResult[*Product], error)
}

type products struct {
	repository.Repository[*Product]
	db *bun.DB
}

var (
	_ Products                        = (*products)(nil)
	_ repository.Repository[*Product] = (*products)(nil)
)

func NewProductsRepository(db *bun.DB) Products {
	repo := repository.NewRepository[*Product](db, repository.ModelHandlers[*Product]{
		NewRecord: func() *Product { return &Product{} },
		GetID: func(p *Product) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Product, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
	})

	return &products{
		Repository: repo,
		db:         db,
	}
}

func (a *products) Query(ctx context.Context, spec *Specification, page Page) (*PagedResult[*Product], error) {
	return a.QueryTx(ctx, a.db, spec, page)
}

func (a *products) QueryTx(ctx context.Context, tx bun.IDB, spec *Specification, page Page) (*PagedResult[*Product], error) {
	var items []*Product
	total, err := queryBySpec(ctx, tx, &items, spec, page)
	if err != nil {
		return nil, err
	}

	return NewPagedResult(items, page, total), nil
}
