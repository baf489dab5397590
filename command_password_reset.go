package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type ResetPasswordMessage struct {
	Token       string `json:"token" example:"4f1f…" doc:"Reset token from the notification email."`
	NewPassword string `json:"new_password" doc:"Replacement password."`
}

func (m ResetPasswordMessage) Type() string { return "user.password_reset" }

// ResetPasswordHandler consumes a reset token and installs the new
// credential. Tokens are single use: consumption is one UPDATE keyed on the
// token value, so of two racing calls exactly one succeeds.
type ResetPasswordHandler struct {
	repo        RepositoryManager
	window      string
	minPassword int
	logger      Logger
}

func NewResetPasswordHandler(repo RepositoryManager) *ResetPasswordHandler {
	return &ResetPasswordHandler{
		repo:        repo,
		window:      ResetTokenWindow,
		minPassword: MinPasswordLength,
		logger:      defLogger{},
	}
}

func (h *ResetPasswordHandler) WithWindow(window string) *ResetPasswordHandler {
	if window != "" {
		h.window = window
	}
	return h
}

func (h *ResetPasswordHandler) WithMinPasswordLength(n int) *ResetPasswordHandler {
	if n > 0 {
		h.minPassword = n
	}
	return h
}

func (h *ResetPasswordHandler) WithLogger(logger Logger) *ResetPasswordHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ResetPasswordHandler) Execute(ctx context.Context, event ResetPasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ResetPasswordHandler) execute(ctx context.Context, event ResetPasswordMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.Token == "" {
		return ErrResetTokenInvalid
	}

	if err := ValidatePasswordStrength(event.NewPassword, h.minPassword); err != nil {
		return err
	}

	user, err := h.repo.Users().GetByResetToken(ctx, event.Token)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrResetTokenInvalid
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve password reset request")
	}

	if user.ResetTokenAt == nil {
		// Token without a timestamp is treated as absent.
		if err := h.repo.Users().ClearResetToken(ctx, user.ID); err != nil {
			h.logger.Error("failed to clear dangling reset token", "user_id", user.ID, "error", err)
		}
		return ErrResetTokenInvalid
	}

	expired, err := IsOutsideWindow(*user.ResetTokenAt, h.window)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check token expiration period")
	}

	if expired {
		// An expired token must not stay dangling: clear it as a side
		// effect of detection so it afterwards behaves as absent.
		if err := h.repo.Users().ClearResetToken(ctx, user.ID); err != nil {
			h.logger.Error("failed to clear expired reset token", "user_id", user.ID, "error", err)
		}
		return ErrResetTokenExpired
	}

	passwordHash, err := HashPassword(event.NewPassword)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
	}

	if _, err := h.repo.Users().ConsumeResetToken(ctx, event.Token, passwordHash); err != nil {
		if goerrors.IsNotFound(err) {
			// Another consumer won the race between lookup and consume.
			return ErrResetTokenInvalid
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user password in database")
	}

	return nil
}
