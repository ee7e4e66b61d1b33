package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	derrors "promptschola/pkg/domainerrors"
	"promptschola/pkg/httputil"
)

// TokenVerifier validates a bearer token against the identity provider.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// Identity is the verified caller: an opaque user reference plus email.
type Identity struct {
	UserID string
	Email  string
}

// Context keys for storing the authenticated identity.
type contextKeyIdentity struct{}

// ContextKeyIdentity is exported for use in handlers and tests.
var ContextKeyIdentity = contextKeyIdentity{}

// GetIdentity retrieves the authenticated identity from the context. The
// second return is false for unauthenticated (anonymous) requests.
func GetIdentity(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(ContextKeyIdentity).(Identity)
	return ident, ok
}

// RequireAuth rejects requests without a valid bearer token. Authentication
// never fails open: a missing token is auth_required, a bad one is
// invalid_session.
func RequireAuth(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := bearerToken(r)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, derrors.New(derrors.CodeAuthRequired, "Sign in required"))
				return
			}

			ident, err := verifier.Verify(ctx, token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, derrors.New(derrors.CodeInvalidSession,
					"Your session is invalid or expired. Please sign in again."))
				return
			}

			ctx = context.WithValue(ctx, ContextKeyIdentity, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches an identity when a valid bearer token is present but
// lets anonymous requests through. Used by endpoints that distinguish anon
// visitors from signed-in free users.
func OptionalAuth(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if token, ok := bearerToken(r); ok {
				if ident, err := verifier.Verify(ctx, token); err == nil {
					ctx = context.WithValue(ctx, ContextKeyIdentity, ident)
				} else {
					logger.DebugContext(ctx, "optional auth - token ignored", "error", err)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	after, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(after) == "" {
		return "", false
	}
	return strings.TrimSpace(after), true
}
