// Package auth implements password hashing and bearer-token issuance.
package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/core"
)

// HashPassword hashes a plaintext password with bcrypt at the default cost.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", core.ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against a stored bcrypt hash.
// A mismatch returns core.ErrInvalidCredentials so callers never leak
// whether the email or the password was wrong.
func CheckPassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return core.ErrInvalidCredentials
		}
		return err
	}
	return nil
}
