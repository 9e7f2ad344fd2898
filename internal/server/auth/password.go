// Package auth holds the credential primitives of the server: password
// hashing, verification codes and access tokens.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	keySize    = 32
	iterations = 10000
)

// HashPassword derives a PBKDF2-HMAC-SHA256 key from password and a fresh
// random salt and encodes both as "base64(salt):base64(key)".
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, iterations, keySize, sha256.New)

	return base64.StdEncoding.EncodeToString(salt) + ":" + base64.StdEncoding.EncodeToString(key), nil
}

// VerifyPassword reports whether password matches encoded. Malformed input
// yields false.
func VerifyPassword(password, encoded string) bool {
	saltPart, keyPart, ok := strings.Cut(encoded, ":")
	if !ok {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(saltPart)
	if err != nil || len(salt) != saltSize {
		return false
	}
	want, err := base64.StdEncoding.DecodeString(keyPart)
	if err != nil || len(want) != keySize {
		return false
	}

	got := pbkdf2.Key([]byte(password), salt, iterations, keySize, sha256.New)

	return subtle.ConstantTimeCompare(got, want) == 1
}
