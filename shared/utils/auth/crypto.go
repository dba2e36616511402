package utils

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// AccessKeyCost is the bcrypt cost used for admin access keys
const AccessKeyCost = 12

// HashAccessKey hashes an admin access key using bcrypt
func HashAccessKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), AccessKeyCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash access key: %w", err)
	}
	return string(hash), nil
}

// VerifyAccessKey checks a provided key against either a bcrypt hash (preferred)
// or the plain configured key.
func VerifyAccessKey(provided, plain, hash string) bool {
	if provided == "" {
		return false
	}
	if hash != "" {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(provided)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(plain)) == 1
}
