package middleware

import (
	"context"
	"io"
	"net/http"
	"strings"

	"storefront-state/internal/authz"
	"storefront-state/internal/domain"
	"storefront-state/internal/observability"
)

type contextKey string

const IdentityKey contextKey = "identity"

// TokenVerifier resolves a bearer token to the identity it was issued for.
// *session.MockProvider implements it.
type TokenVerifier interface {
	ParseToken(token string) (*domain.Identity, error)
}

// BearerAuth rejects requests without a valid Authorization: Bearer token
// and stores the verified identity in the request context.
func BearerAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeJSONError(w, `{"error":"Not authenticated"}`, http.StatusUnauthorized)
				return
			}

			identity, err := verifier.ParseToken(token)
			if err != nil {
				observability.FromContext(r.Context()).Debug("bearer token rejected", "error", err)
				writeJSONError(w, `{"error":"Invalid or expired token"}`, http.StatusUnauthorized)
				return
			}

			ctx := WithIdentity(r.Context(), identity)
			ctx = observability.WithUserID(ctx, identity.ID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func GetIdentity(ctx context.Context) (*domain.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(*domain.Identity)
	return identity, ok && identity != nil
}

func WithIdentity(ctx context.Context, identity *domain.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

func writeJSONError(w http.ResponseWriter, body string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body+"\n")
}

// RequireRole lets through only identities stored by BearerAuth whose role
// is one of roles. Mount it after BearerAuth.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := GetIdentity(r.Context())
			if !ok {
				writeJSONError(w, `{"error":"Not authenticated"}`, http.StatusUnauthorized)
				return
			}
			if !authz.HasAnyRole(identity, roles...) {
				writeJSONError(w, `{"error":"Forbidden"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
