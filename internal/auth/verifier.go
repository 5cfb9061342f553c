package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"chat-relay/internal/models"
	"chat-relay/internal/repositories"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// Verifier resolves a username/password pair to a user identity.
type Verifier interface {
	Verify(ctx context.Context, username, password string) (models.User, error)
}

// BcryptVerifier checks credentials against bcrypt hashes in the user store.
type BcryptVerifier struct {
	users repositories.UserRepository
}

// NewBcryptVerifier constructs a BcryptVerifier.
func NewBcryptVerifier(users repositories.UserRepository) *BcryptVerifier {
	return &BcryptVerifier{users: users}
}

// Verify returns the stored identity when the password matches. An unknown
// username and a wrong password are indistinguishable to the caller.
func (v *BcryptVerifier) Verify(ctx context.Context, username, password string) (models.User, error) {
	user, err := v.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// HashPassword hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
