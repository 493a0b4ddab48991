package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	apperrors "wastewatch-backend/internal/errors"
	"wastewatch-backend/internal/models"
	"wastewatch-backend/internal/store"
)

// CredentialVerifier checks the credential presented at login for u.
type CredentialVerifier interface {
	Verify(ctx context.Context, u *models.User, password string) error
}

// DemoVerifier accepts any credential. It is the AUTH_MODE=demo behaviour.
type DemoVerifier struct{}

func (DemoVerifier) Verify(context.Context, *models.User, string) error { return nil }

// PasswordVerifier checks bcrypt password hashes. A user without a stored
// hash gets the first password they log in with.
type PasswordVerifier struct {
	users store.UserStore
}

func NewPasswordVerifier(users store.UserStore) *PasswordVerifier {
	return &PasswordVerifier{users: users}
}

var errBadCredentials = apperrors.New(apperrors.KindUnauthorized, "invalid email or password")

func (v *PasswordVerifier) Verify(ctx context.Context, u *models.User, password string) error {
	if password == "" {
		return apperrors.New(apperrors.KindValidation, "password is required")
	}

	if u.Password == nil {
		hash, err := HashPassword(password)
		if err != nil {
			return apperrors.Internal("failed to hash password", err)
		}
		err = v.users.SetUserPassword(ctx, u.ID, hash)
		if err == nil {
			u.Password = &hash
			return nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return storeError(err, "user", u.ID)
		}
		// Another login set the first password concurrently; check against it.
		fresh, err := v.users.GetUser(ctx, u.ID)
		if err != nil {
			return storeError(err, "user", u.ID)
		}
		u.Password = fresh.Password
	}

	if u.Password == nil || bcrypt.CompareHashAndPassword([]byte(*u.Password), []byte(password)) != nil {
		return errBadCredentials
	}
	return nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
