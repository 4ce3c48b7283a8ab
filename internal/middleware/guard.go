package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/finledger/backend/internal/apperr"
	"github.com/finledger/backend/internal/auth"
	"github.com/finledger/backend/internal/http/respond"
)

type principalContextKey struct{}

// WithPrincipal stores a validated principal on the context.
func WithPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFrom returns the validated principal, or nil on public routes.
func PrincipalFrom(ctx context.Context) *auth.Principal {
	p, _ := ctx.Value(principalContextKey{}).(*auth.Principal)
	return p
}

// BearerToken extracts the bearer token from the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// Authenticate rejects the request before any handler runs unless it
// carries a valid, unexpired token.
func Authenticate(tokens *auth.TokenManager, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r)
		if !ok {
			respond.Failure(w, apperr.New(apperr.Unauthenticated, "missing bearer token"))
			return
		}
		p, err := tokens.Validate(token)
		if err != nil {
			respond.Failure(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// RequireRole gates a handler behind an explicit role allow-list. It must
// run inside Authenticate; a missing principal is unauthenticated, a
// principal outside the list is the distinct forbidden outcome.
func RequireRole(next http.Handler, roles ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := PrincipalFrom(r.Context())
		if p == nil {
			respond.Failure(w, apperr.New(apperr.Unauthenticated, "missing bearer token"))
			return
		}
		for _, role := range roles {
			if p.Role == role {
				next.ServeHTTP(w, r)
				return
			}
		}
		respond.Failure(w, apperr.New(apperr.Forbidden, "insufficient role"))
	})
}
