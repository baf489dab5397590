package identity

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone_number"`
	Password   string `json:"password"`
	UseHashid  bool   `json:"-"`
	OnResponse func(profile *Profile)
}

func (m RegisterUserMessage) Type() string { return "user.register" }

// PhoneRegion is the default region used to parse national numbers.
var PhoneRegion = "US"

type RegisterUserHandler struct {
	repo        RepositoryManager
	minPassword int
}

func NewRegisterUserHandler(repo RepositoryManager) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:        repo,
		minPassword: MinPasswordLength,
	}
}

func (h *RegisterUserHandler) WithMinPasswordLength(n int) *RegisterUserHandler {
	if n > 0 {
		h.minPassword = n
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := ValidatePasswordStrength(event.Password, h.minPassword); err != nil {
		return err
	}

	if event.Phone != "" {
		if err := validatePhone(event.Phone); err != nil {
			return err
		}
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Users().GetByEmailTx(ctx, tx, event.Email); err == nil {
			return ErrEmailAlreadyExists
		} else if !goerrors.IsNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing user")
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Email = event.Email
		user.Phone = event.Phone
		user.FirstName = strings.TrimSpace(event.FirstName)
		user.LastName = strings.TrimSpace(event.LastName)
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(user.PublicProfile())
	}

	return nil
}

func validatePhone(phone string) error {
	parsed, err := phonenumbers.Parse(phone, PhoneRegion)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return goerrors.New("please enter a valid phone number", goerrors.CategoryValidation).
			WithMetadata(map[string]any{"phone": phone})
	}
	return nil
}
