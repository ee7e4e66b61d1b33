// Package identity validates bearer tokens issued by the external identity
// provider. The provider owns accounts and sessions; this service only
// verifies the tokens it hands out.
package identity

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"promptschola/internal/platform/middleware"
	derrors "promptschola/pkg/domainerrors"
)

// Claims are the provider's access-token claims that we consume.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 access tokens with a shared verification key.
type JWTVerifier struct {
	key []byte
}

// NewJWTVerifier constructs a verifier for the provider's signing key.
func NewJWTVerifier(key string) *JWTVerifier {
	return &JWTVerifier{key: []byte(key)}
}

// Verify parses and validates a token, returning the caller's identity.
// Invalid or expired tokens map to invalid_session, never to a lookup error.
func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (middleware.Identity, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return middleware.Identity{}, derrors.New(derrors.CodeInvalidSession, "token has expired")
		}
		return middleware.Identity{}, derrors.New(derrors.CodeInvalidSession, "invalid token")
	}
	if !parsed.Valid || claims.Subject == "" {
		return middleware.Identity{}, derrors.New(derrors.CodeInvalidSession, "invalid token")
	}

	return middleware.Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
	}, nil
}
