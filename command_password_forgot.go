package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type ForgotPasswordMessage struct {
	Email string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
}

func (m ForgotPasswordMessage) Type() string { return "user.password_forgot" }

// ForgotPasswordHandler issues a reset token. The response shape is the
// same whether or not the email is known, so the endpoint cannot be used
// to enumerate accounts; for unknown addresses only the notification side
// effect is skipped.
type ForgotPasswordHandler struct {
	repo     RepositoryManager
	notifier ResetNotifier
	logger   Logger
}

func NewForgotPasswordHandler(repo RepositoryManager, notifier ResetNotifier) *ForgotPasswordHandler {
	h := &ForgotPasswordHandler{
		repo:   repo,
		logger: defLogger{},
	}
	h.notifier = notifier
	if h.notifier == nil {
		h.notifier = NewLogNotifier(h.logger)
	}
	return h
}

func (h *ForgotPasswordHandler) WithLogger(logger Logger) *ForgotPasswordHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ForgotPasswordHandler) Execute(ctx context.Context, event ForgotPasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ForgotPasswordHandler) execute(ctx context.Context, event ForgotPasswordMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.repo.Users().GetByEmail(ctx, event.Email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			h.logger.Info("password reset requested for unknown email", "email", event.Email)
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
	}

	token, err := NewResetToken()
	if err != nil {
		return err
	}

	// A single-row overwrite: any previously outstanding token is gone the
	// moment this lands.
	if err := h.repo.Users().SetResetToken(ctx, user.ID, token, time.Now()); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store reset token")
	}

	// Delivery is outside the transactional boundary: its failure must not
	// fail the operation, only be observable.
	go func() {
		nctx, ncancel := context.WithTimeout(context.Background(), time.Second*30)
		defer ncancel()

		if err := h.notifier.NotifyPasswordReset(nctx, user.Email, token); err != nil {
			h.logger.Error("password reset notification failed", "email", user.Email, "error", err)
		}
	}()

	return nil
}
