// Package password hashes and verifies user passwords in the
// "pbkdf2_sha256$<iterations>$<salt hex>$<hash hex>" format.
package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	Algorithm         = "pbkdf2_sha256"
	DefaultIterations = 240000

	saltBytes = 16
	hashBytes = 32
)

var ErrInvalidHash = errors.New("invalid password hash")

// Hash derives a new salted hash of plain.
func Hash(plain string, iterations int) (string, error) {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	dk := pbkdf2.Key([]byte(plain), salt, iterations, hashBytes, sha256.New)
	return fmt.Sprintf("%s$%d$%s$%s", Algorithm, iterations, hex.EncodeToString(salt), hex.EncodeToString(dk)), nil
}

// Verify reports whether plain matches stored. Unparseable hashes never
// match.
func Verify(plain, stored string) bool {
	iterations, salt, expected, err := parse(stored)
	if err != nil {
		return false
	}
	dk := pbkdf2.Key([]byte(plain), salt, iterations, len(expected), sha256.New)
	return subtle.ConstantTimeCompare(dk, expected) == 1
}

func parse(stored string) (int, []byte, []byte, error) {
	parts := strings.SplitN(stored, "$", 4)
	if len(parts) != 4 || parts[0] != Algorithm {
		return 0, nil, nil, ErrInvalidHash
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return 0, nil, nil, ErrInvalidHash
	}
	salt, err := hex.DecodeString(parts[2])
	if err != nil {
		return 0, nil, nil, ErrInvalidHash
	}
	expected, err := hex.DecodeString(parts[3])
	if err != nil || len(expected) == 0 {
		return 0, nil, nil, ErrInvalidHash
	}
	return iterations, salt, expected, nil
}
