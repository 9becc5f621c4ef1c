package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/slotkeeper/libs/auth"
	"github.com/md-rashed-zaman/slotkeeper/libs/httpx"
	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/policy"
)

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type ContextResolver interface {
	Resolve(ctx context.Context, userID string, role policy.Role) (policy.AuthorizationContext, error)
}

// RequireAuth verifies the bearer token and stores the caller's AuthorizationContext
// on the request context. Store ownership is looked up here, once per request.
func RequireAuth(verifier TokenVerifier, resolver ContextResolver, logger *slog.Logger) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
				return
			}
			claims, err := verifier.Verify(token)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			role, ok := policy.ParseRole(claims.Role)
			if !ok {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			ac, err := resolver.Resolve(r.Context(), claims.Subject, role)
			if err != nil {
				logger.Error("resolve authorization context failed", "request_id", httpx.RequestIDFromContext(r.Context()), "err", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r.WithContext(policy.WithContext(r.Context(), ac)))
		})
	}
}
