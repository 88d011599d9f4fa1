// Package middleware provides the HTTP middleware chain for the gateway.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/babbly/api-gateway/internal/identity"
	"github.com/babbly/api-gateway/pkg/logger"
)

type contextKey string

const (
	callerKey      contextKey = "caller"
	authFailureKey contextKey = "auth-failure"
)

// CallerFromContext returns the resolved caller identity, if any.
func CallerFromContext(ctx context.Context) (*identity.CallerIdentity, bool) {
	caller, ok := ctx.Value(callerKey).(*identity.CallerIdentity)
	return caller, ok && caller != nil
}

// authFailureFromContext returns the identity resolution error, if resolution
// was attempted and failed.
func authFailureFromContext(ctx context.Context) error {
	err, _ := ctx.Value(authFailureKey).(error)
	return err
}

// Caller resolves the request's bearer token once, upstream of the handlers.
// Resolution failure never rejects the request here: the caller proceeds as
// anonymous and routes that require authentication decide via RequireAuth.
// Resolved claims are forwarded to upstream services as X-User-* headers.
func Caller(resolver identity.Resolver, log *logger.Logger) mux.MiddlewareFunc {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			caller, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				log.WithError(err).Debug("identity resolution failed, continuing as anonymous")
				ctx := context.WithValue(r.Context(), authFailureKey, err)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			r.Header.Set("X-User-Sub", caller.Subject.String())
			if len(caller.Roles) > 0 {
				r.Header.Set("X-User-Roles", strings.Join(caller.Roles, ","))
			}

			ctx := context.WithValue(r.Context(), callerKey, &caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests without a resolved caller. An unreachable auth
// authority yields 503 rather than 401: the caller may well hold a valid
// token that nobody could check.
func RequireAuth() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := CallerFromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}
			if errors.Is(authFailureFromContext(r.Context()), identity.ErrAuthorityUnreachable) {
				jsonError(w, "authentication temporarily unavailable", http.StatusServiceUnavailable)
				return
			}
			jsonError(w, "authentication required", http.StatusUnauthorized)
		})
	}
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
