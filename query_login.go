package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type LoginMessage struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (m LoginMessage) Type() string { return "user.login" }

// LoginHandler answers a credential pair with a minted session.
type LoginHandler struct {
	auth *Authenticator
}

func NewLoginHandler(auth *Authenticator) *LoginHandler {
	return &LoginHandler{auth: auth}
}

func (h *LoginHandler) Query(ctx context.Context, event LoginMessage) (*SessionResult, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during login",
		)
	default:
		return h.query(ctx, event)
	}
}

func (h *LoginHandler) query(ctx context.Context, event LoginMessage) (*SessionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	return h.auth.Authenticate(ctx, event.Email, event.Password)
}
