package session

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

const (
	// MinSecretLength is the shortest SESSION_SECRET accepted, in bytes.
	MinSecretLength = 32

	keyInfo   = "smartledger/session/v1"
	keyLength = 32
)

// Signer computes and checks HMAC-SHA256 tags over payload bytes.
// The MAC key is derived from the configured secret with HKDF, so the raw
// secret never keys the MAC directly.
type Signer struct {
	key []byte
}

// NewSigner derives a signer from secret. An empty or short secret is a
// *ConfigError; there is no built-in default.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, &ConfigError{Setting: "SESSION_SECRET", Err: ErrMissingSecret}
	}
	if len(secret) < MinSecretLength {
		return nil, &ConfigError{
			Setting: "SESSION_SECRET",
			Err:     fmt.Errorf("%w: %d bytes, need at least %d", ErrWeakSecret, len(secret), MinSecretLength),
		}
	}
	return newSigner([]byte(secret))
}

// NewEphemeralSigner returns a signer keyed by a random secret that lives
// only as long as the process. Meant for explicit development opt-in.
func NewEphemeralSigner() (*Signer, error) {
	secret := make([]byte, MinSecretLength)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate ephemeral secret: %w", err)
	}
	return newSigner(secret)
}

func newSigner(secret []byte) (*Signer, error) {
	key := make([]byte, keyLength)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	return &Signer{key: key}, nil
}

// Sign returns the MAC of msg.
func (s *Signer) Sign(msg []byte) ([]byte, error) {
	sig, err := jwt.SigningMethodHS256.Sign(string(msg), s.key)
	if err != nil {
		return nil, fmt.Errorf("sign session payload: %w", err)
	}
	return sig, nil
}

// Verify reports whether sig is the MAC of msg. The comparison is constant
// time (hmac.Equal inside the HS256 method) and never panics.
func (s *Signer) Verify(msg, sig []byte) bool {
	if s == nil || len(sig) == 0 {
		return false
	}
	return jwt.SigningMethodHS256.Verify(string(msg), sig, s.key) == nil
}
