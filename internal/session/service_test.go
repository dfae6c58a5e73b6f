package session

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestService(t *testing.T, clock *fakeClock, opts ...Option) *Service {
	t.Helper()
	signer, err := NewSigner(testSecret)
	require.NoError(t, err)
	svc, err := NewService(signer, append([]Option{WithClock(clock.Now)}, opts...)...)
	require.NoError(t, err)
	return svc
}

func TestService_IssueVerify(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_750_000_000, 0)}
	svc := newTestService(t, clock)

	tok, err := svc.Issue("42")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(tok.Value, "."))
	assert.Equal(t, clock.t.Add(DefaultTTL).Unix(), tok.ExpiresAt.Unix())

	subject, ok := svc.Verify(tok.Value)
	assert.True(t, ok)
	assert.Equal(t, "42", subject)
}

func TestService_ExpiryBoundary(t *testing.T) {
	start := time.Unix(1_750_000_000, 0)
	clock := &fakeClock{t: start}
	svc := newTestService(t, clock, WithTTL(time.Hour))

	tok, err := svc.Issue("7")
	require.NoError(t, err)

	clock.t = start.Add(time.Hour)
	_, ok := svc.Verify(tok.Value)
	assert.True(t, ok, "valid at exactly issuedAt+TTL")

	clock.t = start.Add(time.Hour + time.Second)
	_, ok = svc.Verify(tok.Value)
	assert.False(t, ok, "invalid strictly after issuedAt+TTL")

	_, err = svc.parse(tok.Value)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestService_TamperEveryBit(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_750_000_000, 0)}
	svc := newTestService(t, clock)

	tok, err := svc.Issue("1001")
	require.NoError(t, err)

	for i := 0; i < len(tok.Value); i++ {
		if tok.Value[i] == '.' {
			continue
		}
		for bit := 0; bit < 8; bit++ {
			b := []byte(tok.Value)
			b[i] ^= 1 << bit
			_, ok := svc.Verify(string(b))
			require.Falsef(t, ok, "flip of bit %d at position %d accepted", bit, i)
		}
	}
}

func TestService_ForgedPayloadRejected(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_750_000_000, 0)}
	svc := newTestService(t, clock)

	tok, err := svc.Issue("1")
	require.NoError(t, err)
	_, sigText, _ := strings.Cut(tok.Value, ".")

	forged, err := Encode(Payload{Subject: "2", IssuedAt: clock.t.Unix(), ExpiresAt: clock.t.Unix() + 60, Nonce: "x"})
	require.NoError(t, err)

	_, ok := svc.Verify(forged + "." + sigText)
	assert.False(t, ok)
	_, err = svc.parse(forged + "." + sigText)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestService_StructuralFailures(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_750_000_000, 0)}
	svc := newTestService(t, clock)

	tok, err := svc.Issue("1")
	require.NoError(t, err)
	body, sig, _ := strings.Cut(tok.Value, ".")

	cases := map[string]string{
		"empty":           "",
		"no separator":    body + sig,
		"two separators":  body + "." + sig + ".",
		"empty signature": body + ".",
		"empty payload":   "." + sig,
		"truncated":       tok.Value[:len(tok.Value)-3],
		"padded":          tok.Value + "==",
		"std alphabet":    strings.NewReplacer("-", "+", "_", "/").Replace(tok.Value) + "+",
		"whitespace":      tok.Value + "\n",
		"reencoded": base64.URLEncoding.EncodeToString(mustDecode(t, body)) + "." +
			base64.URLEncoding.EncodeToString(mustDecode(t, sig)),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			subject, ok := svc.Verify(token)
			assert.False(t, ok)
			assert.Empty(t, subject)
		})
	}
}

func TestService_NonceUniqueSameSecond(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_750_000_000, 0)}
	svc := newTestService(t, clock)

	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		tok, err := svc.Issue("5")
		require.NoError(t, err)
		_, dup := seen[tok.Value]
		require.False(t, dup, "duplicate token issued")
		seen[tok.Value] = struct{}{}
	}
}

func TestService_SecretRotationInvalidatesAll(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_750_000_000, 0)}
	svc := newTestService(t, clock)
	tok, err := svc.Issue("9")
	require.NoError(t, err)

	rotated, err := NewSigner(testSecret + "-rotated")
	require.NoError(t, err)
	svc2, err := NewService(rotated, WithClock(clock.Now))
	require.NoError(t, err)

	_, ok := svc2.Verify(tok.Value)
	assert.False(t, ok)
}

func TestService_UserHelpers(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_750_000_000, 0)}
	svc := newTestService(t, clock)

	tok, err := svc.IssueForUser(77)
	require.NoError(t, err)
	id, ok := svc.VerifyUser(tok.Value)
	assert.True(t, ok)
	assert.Equal(t, int64(77), id)

	_, err = svc.IssueForUser(0)
	assert.Error(t, err)

	named, err := svc.Issue("alice")
	require.NoError(t, err)
	_, ok = svc.VerifyUser(named.Value)
	assert.False(t, ok)
}

func TestNewService_Config(t *testing.T) {
	_, err := NewService(nil)
	var ce *ConfigError
	assert.ErrorAs(t, err, &ce)

	signer, err := NewSigner(testSecret)
	require.NoError(t, err)
	_, err = NewService(signer, WithTTL(500*time.Millisecond))
	assert.ErrorIs(t, err, ErrInvalidTTL)

	_, err = (&Service{signer: signer, ttl: time.Hour, now: time.Now, newNonce: randomNonce}).Issue("")
	assert.Error(t, err)
}

func mustDecode(t *testing.T, s string) []byte {
	t.Helper()
	b, err := base64.RawURLEncoding.DecodeString(s)
	require.NoError(t, err)
	return b
}
