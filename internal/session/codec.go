// Package session issues and verifies stateless, signed session tokens.
//
// A token is base64url(payload) "." base64url(mac), where payload is the
// RFC 8785 canonical JSON of a Payload and mac is HMAC-SHA256 over those
// exact bytes. Nothing is stored server side: rotating SESSION_SECRET is the
// only way to invalidate outstanding tokens, and it invalidates all of them.
package session

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"

	"github.com/gowebpki/jcs"
)

// Payload is the signed content of a session token.
type Payload struct {
	Subject   string `json:"uid"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
	Nonce     string `json:"rnd"`
}

// wirePayload uses pointers so that absent fields can be told apart from
// zero values.
type wirePayload struct {
	Subject   *string `json:"uid"`
	IssuedAt  *int64  `json:"iat"`
	ExpiresAt *int64  `json:"exp"`
	Nonce     *string `json:"rnd"`
}

var textEncoding = base64.RawURLEncoding.Strict()

// CanonicalBytes returns the deterministic byte form that gets signed.
func CanonicalBytes(p Payload) ([]byte, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return jcs.Transform(raw)
}

// Encode returns the URL-safe, unpadded text form of p.
func Encode(p Payload) (string, error) {
	b, err := CanonicalBytes(p)
	if err != nil {
		return "", err
	}
	return textEncoding.EncodeToString(b), nil
}

// Decode parses the text form of a payload. It checks structure only;
// signature and expiry are the Service's job.
func Decode(text string) (Payload, error) {
	b, err := decodeText(text)
	if err != nil {
		return Payload{}, err
	}
	return DecodeBytes(b)
}

// DecodeBytes parses canonical payload bytes. Bytes that are valid JSON but
// not in canonical form are rejected.
func DecodeBytes(b []byte) (Payload, error) {
	canon, err := jcs.Transform(b)
	if err != nil {
		return Payload{}, decodeErr("invalid json", err)
	}
	if !bytes.Equal(canon, b) {
		return Payload{}, decodeErr("payload is not canonical", nil)
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var w wirePayload
	if err := dec.Decode(&w); err != nil {
		return Payload{}, decodeErr("invalid payload", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Payload{}, decodeErr("trailing data", nil)
	}

	switch {
	case w.Subject == nil || *w.Subject == "":
		return Payload{}, decodeErr("missing uid", nil)
	case w.IssuedAt == nil:
		return Payload{}, decodeErr("missing iat", nil)
	case w.ExpiresAt == nil:
		return Payload{}, decodeErr("missing exp", nil)
	case w.Nonce == nil || *w.Nonce == "":
		return Payload{}, decodeErr("missing rnd", nil)
	case *w.ExpiresAt <= *w.IssuedAt:
		return Payload{}, decodeErr("exp not after iat", nil)
	}

	return Payload{
		Subject:   *w.Subject,
		IssuedAt:  *w.IssuedAt,
		ExpiresAt: *w.ExpiresAt,
		Nonce:     *w.Nonce,
	}, nil
}

func decodeText(text string) ([]byte, error) {
	if text == "" {
		return nil, decodeErr("empty", nil)
	}
	b, err := textEncoding.DecodeString(text)
	if err != nil {
		return nil, decodeErr("invalid base64url", err)
	}
	return b, nil
}
