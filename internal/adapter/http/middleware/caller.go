package middleware

import (
	"net/http"
	"strings"

	"github.com/iho/custody/internal/domain"
	"github.com/iho/custody/internal/infrastructure/auth"
)

// CallerMiddleware resolves the caller address from a Bearer token and
// puts it on the request context. Requests without a token pass through
// unauthenticated; use cases that need a caller reject them.
type CallerMiddleware struct {
	tokens *auth.TokenManager
}

// NewCallerMiddleware creates a new CallerMiddleware.
func NewCallerMiddleware(tokens *auth.TokenManager) *CallerMiddleware {
	return &CallerMiddleware{tokens: tokens}
}

// Wrap wraps an http.Handler with caller resolution.
func (m *CallerMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "invalid authorization header format", http.StatusUnauthorized)
			return
		}

		caller, err := m.tokens.Verify(parts[1])
		if err != nil {
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(domain.WithCaller(r.Context(), caller)))
	})
}

// CallerHeaderKey is the development header carrying the caller address.
const CallerHeaderKey = "X-Caller-Address"

// CallerHeader trusts the X-Caller-Address header. Development only;
// production deployments resolve callers from bearer tokens instead.
func CallerHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := r.Header.Get(CallerHeaderKey); raw != "" {
			caller, err := domain.ParseAddress(raw)
			if err != nil {
				http.Error(w, "invalid caller address", http.StatusUnauthorized)
				return
			}
			r = r.WithContext(domain.WithCaller(r.Context(), caller))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireCaller rejects requests that carry no authenticated caller.
// Mutating routes use it so a missing token fails fast with 401 instead
// of surfacing as an authorization error from the use case.
func RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := domain.CallerFromContext(r.Context()); !ok {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
