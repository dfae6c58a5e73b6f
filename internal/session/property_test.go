package session

import (
	"testing"
	"time"
	"unicode"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

// Property: Verify(Issue(subject)) == subject at any time up to issuedAt+TTL,
// and "unauthenticated" at any time after it.
func TestService_RoundTripProperty(t *testing.T) {
	signer, err := NewSigner(testSecret)
	require.NoError(t, err)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("issued tokens verify until expiry", prop.ForAll(
		func(subject string, ttlSeconds int64, frac float64) bool {
			clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
			svc, err := NewService(signer, WithClock(clock.Now), WithTTL(time.Duration(ttlSeconds)*time.Second))
			if err != nil {
				return false
			}
			tok, err := svc.Issue(subject)
			if err != nil {
				return false
			}

			clock.t = clock.t.Add(time.Duration(float64(ttlSeconds)*frac) * time.Second)
			got, ok := svc.Verify(tok.Value)
			if !ok || got != subject {
				return false
			}

			clock.t = time.Unix(1_700_000_000+ttlSeconds+1, 0)
			_, ok = svc.Verify(tok.Value)
			return !ok
		},
		gen.Identifier(),
		gen.Int64Range(1, 60*24*3600),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

// Property: canonical encoding is stable, so Encode(Decode(Encode(p))) == Encode(p).
func TestCodec_StableProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("encoding is a fixed point", prop.ForAll(
		func(subject, nonce string, iat int64) bool {
			if subject == "" || nonce == "" {
				return true
			}
			p := Payload{Subject: subject, IssuedAt: iat, ExpiresAt: iat + 1, Nonce: nonce}
			text, err := Encode(p)
			if err != nil {
				return false
			}
			back, err := Decode(text)
			if err != nil || back != p {
				return false
			}
			again, err := Encode(back)
			return err == nil && again == text
		},
		gen.UnicodeString(unicode.Hangul),
		gen.AlphaString(),
		gen.Int64Range(0, 4_000_000_000),
	))

	properties.TestingRun(t)
}
