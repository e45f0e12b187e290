package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/WeCr8/goodbodybucks/internal/models"
	"github.com/WeCr8/goodbodybucks/internal/security"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const PrincipalContextKey ContextKey = "principal"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	tokens *security.TokenManager
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(tokens *security.TokenManager) *Middleware {
	return &Middleware{tokens: tokens}
}

// RequireAuth verifies the bearer token and injects the principal
// into the request context.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			respondWithError(w, http.StatusUnauthorized, "missing bearer token", "", nil)
			return
		}

		principal, err := m.tokens.Verify(token)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "invalid token", "Token verification failed", err)
			return
		}

		ctx := context.WithValue(r.Context(), PrincipalContextKey, principal)
		next(w, r.WithContext(ctx))
	}
}

// RequireAdmin is RequireAuth plus an admin-role check
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		principal := GetPrincipal(r.Context())
		if !principal.IsAdmin() {
			respondWithError(w, http.StatusForbidden, "admin role required", "", nil)
			return
		}
		next(w, r)
	})
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// GetPrincipal retrieves the authenticated principal from the request
// context. The zero value means no auth middleware ran.
func GetPrincipal(ctx context.Context) models.Principal {
	principal, _ := ctx.Value(PrincipalContextKey).(models.Principal)
	return principal
}
