package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashAccessKey hashes a plain access key using bcrypt.
// Rejects keys longer than 72 bytes (bcrypt's maximum).
func HashAccessKey(key string) (string, error) {
	if len(key) > 72 {
		return "", fmt.Errorf("access key exceeds maximum length of 72 bytes")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckAccessKey compares a plain access key with a bcrypt hash.
func CheckAccessKey(key, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
