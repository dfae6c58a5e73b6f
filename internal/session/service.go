package session

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTTL is how long an issued token stays valid.
	DefaultTTL = 7 * 24 * time.Hour

	// separator is outside the base64url alphabet.
	separator = "."
)

// Token is an issued session credential.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Service issues and verifies session tokens. It holds no mutable state and
// is safe for concurrent use.
type Service struct {
	signer   *Signer
	ttl      time.Duration
	now      func() time.Time
	newNonce func() (string, error)
}

type Option func(*Service)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(signer *Signer, opts ...Option) (*Service, error) {
	if signer == nil {
		return nil, &ConfigError{Setting: "SESSION_SECRET", Err: ErrMissingSecret}
	}
	s := &Service{
		signer:   signer,
		ttl:      DefaultTTL,
		now:      time.Now,
		newNonce: randomNonce,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ttl < time.Second {
		return nil, &ConfigError{Setting: "SESSION_TTL", Err: ErrInvalidTTL}
	}
	return s, nil
}

// TTL returns the lifetime given to new tokens.
func (s *Service) TTL() time.Duration { return s.ttl }

// Issue creates a token for subject valid from now until now+TTL.
func (s *Service) Issue(subject string) (Token, error) {
	if subject == "" {
		return Token{}, errors.New("issue session: empty subject")
	}
	nonce, err := s.newNonce()
	if err != nil {
		return Token{}, fmt.Errorf("issue session: %w", err)
	}

	now := s.now().Unix()
	p := Payload{
		Subject:   subject,
		IssuedAt:  now,
		ExpiresAt: now + int64(s.ttl/time.Second),
		Nonce:     nonce,
	}
	body, err := CanonicalBytes(p)
	if err != nil {
		return Token{}, fmt.Errorf("issue session: encode payload: %w", err)
	}
	sig, err := s.signer.Sign(body)
	if err != nil {
		return Token{}, fmt.Errorf("issue session: %w", err)
	}

	return Token{
		Value:     textEncoding.EncodeToString(body) + separator + textEncoding.EncodeToString(sig),
		ExpiresAt: time.Unix(p.ExpiresAt, 0),
	}, nil
}

// IssueForUser issues a token whose subject is the decimal user id.
func (s *Service) IssueForUser(userID int64) (Token, error) {
	if userID <= 0 {
		return Token{}, fmt.Errorf("issue session: invalid user id %d", userID)
	}
	return s.Issue(strconv.FormatInt(userID, 10))
}

// Verify returns the token's subject when the token is well formed, carries
// a valid signature and has not expired. Every failure looks the same to
// the caller.
func (s *Service) Verify(token string) (string, bool) {
	p, err := s.parse(token)
	if err != nil {
		slog.Debug("Session token rejected", "reason", rejectReason(err))
		return "", false
	}
	return p.Subject, true
}

// VerifyUser is Verify for tokens issued by IssueForUser.
func (s *Service) VerifyUser(token string) (int64, bool) {
	subject, ok := s.Verify(token)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (s *Service) parse(token string) (Payload, error) {
	if !validTokenText(token) {
		return Payload{}, decodeErr("unexpected characters", nil)
	}
	bodyText, sigText, ok := strings.Cut(token, separator)
	if !ok || strings.Contains(sigText, separator) {
		return Payload{}, decodeErr("expected exactly one separator", nil)
	}

	body, err := decodeText(bodyText)
	if err != nil {
		return Payload{}, err
	}
	sig, err := decodeText(sigText)
	if err != nil {
		return Payload{}, err
	}
	if !s.signer.Verify(body, sig) {
		return Payload{}, ErrBadSignature
	}

	p, err := DecodeBytes(body)
	if err != nil {
		return Payload{}, err
	}
	if s.now().Unix() > p.ExpiresAt {
		return Payload{}, ErrExpired
	}
	return p, nil
}

// validTokenText accepts only the base64url alphabet and the separator.
func validTokenText(token string) bool {
	if token == "" {
		return false
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrMalformedToken):
		return "malformed"
	case errors.Is(err, ErrBadSignature):
		return "signature"
	case errors.Is(err, ErrExpired):
		return "expired"
	}
	return "unknown"
}

func randomNonce() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return id.String(), nil
}
