// Package auth resolves the session token of a request to a user id.
//
// The token is read from the session cookie first, then from an
// "Authorization: Bearer" header. Failures are not distinguished to the
// client: every rejected request gets the same 401.
package auth

import (
	"context"
	"net/http"
	"strings"

	"smartledger/internal/log"
)

type contextKey string

const userIDKey contextKey = "user_id"

// Verifier maps a token to its user. Implemented by session.Service and
// services.AuthService.
type Verifier interface {
	VerifyUser(token string) (int64, bool)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(token string) (int64, bool)

func (f VerifierFunc) VerifyUser(token string) (int64, bool) { return f(token) }

// TokenFromRequest returns the session token carried by r, or "".
func TokenFromRequest(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if scheme, tok, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(tok)
	}
	return ""
}

// Required rejects requests without a valid session. onUnauthenticated
// writes the rejection.
func Required(v Verifier, cookieName string, onUnauthenticated http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := TokenFromRequest(r, cookieName)
			if tok == "" {
				onUnauthenticated(w, r)
				return
			}
			uid, ok := v.VerifyUser(tok)
			if !ok {
				onUnauthenticated(w, r)
				return
			}

			ctx := WithUserID(r.Context(), uid)
			ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, uid))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID returns the authenticated user of ctx.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok && id > 0
}
