package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

type ListUserProductsMessage struct {
	UserID     uuid.UUID `json:"-"`
	PageNumber int       `json:"page_number"`
	PageSize   int       `json:"page_size"`
}

func (m ListUserProductsMessage) Type() string { return "user.products_list" }

// ListUserProductsHandler pages through the products owned by one user.
type ListUserProductsHandler struct {
	repo            RepositoryManager
	defaultPageSize int
	maxPageSize     int
}

func NewListUserProductsHandler(repo RepositoryManager, cfg Config) *ListUserProductsHandler {
	return &ListUserProductsHandler{
		repo:            repo,
		defaultPageSize: cfg.GetDefaultPageSize(),
		maxPageSize:     cfg.GetMaxPageSize(),
	}
}

func (h *ListUserProductsHandler) Query(ctx context.Context, event ListUserProductsMessage) (*PagedResult[*Product], error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during product listing",
		)
	default:
		return h.query(ctx, event)
	}
}

func (h *ListUserProductsHandler) query(ctx context.Context, event ListUserProductsMessage) (*PagedResult[*Product], error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.UserID == uuid.Nil {
		return nil, ErrUserNotFound
	}

	// The owner has to exist; an unknown owner is an error, not an empty page.
	if _, err := h.repo.Users().GetByID(ctx, event.UserID.String()); err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve product owner")
	}

	spec := NewSpecification().
		Where("user_id", OpEqual, event.UserID)

	page := Page{Number: event.PageNumber, Size: event.PageSize}.
		Normalize(h.defaultPageSize, h.maxPageSize)

	result, err := h.repo.Products().Query(ctx, spec, page)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to query user products")
	}

	return result, nil
}
