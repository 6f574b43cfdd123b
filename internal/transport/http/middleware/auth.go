package middleware

import (
	"context"
	"net/http"
	"strings"

	jwtinfra "github.com/telecare-api/internal/infrastructure/jwt"
)

type contextKey string

const claimsKey contextKey = "claims"

// Auth returns middleware that validates the Bearer JWT and injects claims
// into the request context.
func Auth(provider *jwtinfra.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := verifyRequest(provider, r)
			if err != "" {
				writeJSONError(w, http.StatusUnauthorized, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// OptionalAuth injects claims when a valid bearer is present but lets
// anonymous requests through. Used on routes that behave differently for
// elevated callers without requiring a login.
func OptionalAuth(provider *jwtinfra.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, errMsg := verifyRequest(provider, r); errMsg == "" {
				r = r.WithContext(WithClaims(r.Context(), claims))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// verifyRequest checks the Authorization header, or the `token` query
// parameter as a fallback for clients that cannot set headers on a
// websocket upgrade.
func verifyRequest(provider *jwtinfra.Provider, r *http.Request) (*jwtinfra.Claims, string) {
	tokenStr := ""
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		tokenStr = strings.TrimPrefix(authHeader, "Bearer ")
	} else if q := r.URL.Query().Get("token"); q != "" {
		tokenStr = q
	}
	if tokenStr == "" {
		return nil, "missing or invalid authorization header"
	}
	claims, err := provider.Verify(tokenStr)
	if err != nil {
		return nil, "invalid or expired token"
	}
	return claims, ""
}

// WithClaims returns ctx carrying the given claims.
func WithClaims(ctx context.Context, claims *jwtinfra.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext extracts JWT claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*jwtinfra.Claims)
	return c, ok
}
