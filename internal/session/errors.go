package session

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedToken matches every *DecodeError.
	ErrMalformedToken = errors.New("malformed session token")
	ErrBadSignature   = errors.New("session signature mismatch")
	ErrExpired        = errors.New("session expired")

	ErrMissingSecret = errors.New("secret is not set")
	ErrWeakSecret    = errors.New("secret is too short")
	ErrInvalidTTL    = errors.New("ttl must be at least one second")
)

// ConfigError reports a session setting that makes the service unusable.
// It is raised at startup and must not be swallowed.
type ConfigError struct {
	Setting string
	Err     error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("session config %s: %v", e.Setting, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// DecodeError reports token text that could not be turned into a payload.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode session token: %s: %v", e.Reason, e.Err)
	}
	return "decode session token: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrMalformedToken }

func decodeErr(reason string, err error) error {
	return &DecodeError{Reason: reason, Err: err}
}
