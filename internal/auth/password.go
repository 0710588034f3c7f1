package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	perrors "go.pilab.hu/portal/errors"
)

// MaxPasswordLength is the longest password accepted at signup. It stays
// below bcrypt's 72 byte input limit.
const MaxPasswordLength = 64

// ErrBadCredentials is returned by Verify when the password does not match.
var ErrBadCredentials = perrors.NewAuth("Invalid email or password.", nil)

// PasswordHasher hashes and verifies account passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) error
}

// BcryptPasswordHasher stores passwords as bcrypt hashes.
type BcryptPasswordHasher struct {
	Cost int
}

// NewBcryptPasswordHasher uses bcrypt.DefaultCost when cost <= 0.
func NewBcryptPasswordHasher(cost int) *BcryptPasswordHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptPasswordHasher{Cost: cost}
}

func (h *BcryptPasswordHasher) Hash(password string) (string, error) {
	if len(password) > MaxPasswordLength {
		return "", perrors.ErrInvalidSignup
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns ErrBadCredentials on a mismatch, including an empty hash
// for an unknown account.
func (h *BcryptPasswordHasher) Verify(hashedPassword, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword), errors.Is(err, bcrypt.ErrHashTooShort):
		return ErrBadCredentials
	default:
		return fmt.Errorf("verify password: %w", err)
	}
}

var _ PasswordHasher = (*BcryptPasswordHasher)(nil)
