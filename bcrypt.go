package identity

import (
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword will generate a password hash. bcrypt embeds a unique salt
// per hash, so no separate salt column is stored.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost())
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidCredentials
		}
		return err
	}
	return nil
}

// dummyHash is compared against when no user matches the identifier, so an
// unknown email costs the same work as a wrong password.
var dummyHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), passwordHashCost())
	if err != nil {
		panic(err)
	}
	return string(h)
}()

// CompareDummyHash burns a bcrypt verification without matching anything.
// Always returns ErrInvalidCredentials.
func CompareDummyHash(password string) error {
	bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
	return ErrInvalidCredentials
}

// RandomPasswordHash is a temporary password, used when auto-provisioning
// social login users that have no local credential yet.
func RandomPasswordHash() string {
	pwd := uuid.New()

	h, err := HashPassword(pwd.String())
	if err != nil {
		return RandomPasswordHash()
	}

	return h
}
