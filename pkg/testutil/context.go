package testutil

import (
	"context"
	"net/http"

	"promptschola/internal/platform/middleware"
)

// WithIdentity adds an authenticated identity to the request context. This
// simulates what RequireAuth does for authenticated requests.
func WithIdentity(req *http.Request, userID, email string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeyIdentity,
		middleware.Identity{UserID: userID, Email: email})
	return req.WithContext(ctx)
}
