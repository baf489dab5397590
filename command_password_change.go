package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

type ChangePasswordMessage struct {
	UserID      uuid.UUID `json:"-"`
	OldPassword string    `json:"old_password"`
	NewPassword string    `json:"new_password"`
}

func (m ChangePasswordMessage) Type() string { return "user.password_change" }

// ChangePasswordHandler replaces the credential of an already authenticated
// actor after re-verifying the old password.
type ChangePasswordHandler struct {
	repo        RepositoryManager
	minPassword int
}

func NewChangePasswordHandler(repo RepositoryManager) *ChangePasswordHandler {
	return &ChangePasswordHandler{
		repo:        repo,
		minPassword: MinPasswordLength,
	}
}

func (h *ChangePasswordHandler) WithMinPasswordLength(n int) *ChangePasswordHandler {
	if n > 0 {
		h.minPassword = n
	}
	return h
}

func (h *ChangePasswordHandler) Execute(ctx context.Context, event ChangePasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password change",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangePasswordHandler) execute(ctx context.Context, event ChangePasswordMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.UserID == uuid.Nil {
		return ErrInvalidCredentials
	}

	if err := ValidatePasswordStrength(event.NewPassword, h.minPassword); err != nil {
		return err
	}

	user, err := h.repo.Users().GetByID(ctx, event.UserID.String())
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrInvalidCredentials
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password change")
	}

	if err := ComparePasswordAndHash(event.OldPassword, user.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}

	passwordHash, err := HashPassword(event.NewPassword)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
	}

	if err := h.repo.Users().UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user password in database")
	}

	return nil
}
