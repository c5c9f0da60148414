package secrets

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	dErrors "otapproval/pkg/domain-errors"
)

// SecretBytes is the entropy of a generated approval secret.
const SecretBytes = 32

// Generate creates a cryptographically secure random secret, base64url
// encoded without padding so it can travel in a query string unescaped.
func Generate() (string, error) {
	buf := make([]byte, SecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Digest returns the hex BLAKE2b-256 digest of secret. Tokens are stored and
// looked up by digest so the registry never holds a usable bearer value.
func Digest(secret string) (string, error) {
	if secret == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "secret cannot be empty")
	}
	sum := blake2b.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:]), nil
}

// Matches reports whether secret hashes to digest, in constant time.
func Matches(secret, digest string) bool {
	computed, err := Digest(secret)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}
