package auth

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/crypto/bcrypt"

	"github.com/sparkdata/sparkdata-go/internal/store"
)

// ErrInvalidCredentials covers both unknown users and wrong passwords
// so responses do not leak which one failed.
var ErrInvalidCredentials = eris.New("invalid credentials")

// VerifyLogin checks an email/password pair against the users table.
func VerifyLogin(ctx context.Context, keys *store.KeyStore, email, password string) error {
	hash, err := keys.UserPasswordHash(ctx, email)
	if eris.Is(err, store.ErrKeyNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword produces a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", eris.Wrap(err, "auth: hash password")
	}
	return string(h), nil
}
