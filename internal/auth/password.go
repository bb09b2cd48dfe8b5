package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"atlas/internal/core"
)

const MinPasswordLength = 6

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword returns core.ErrUnauthorized on mismatch.
func CheckPassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return core.ErrUnauthorized
	}
	if err != nil {
		return fmt.Errorf("compare password: %w", err)
	}
	return nil
}
