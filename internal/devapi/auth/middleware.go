package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/combatwarrior/academy/internal/common/httpx"
)

type ctxKey struct{}

// ClaimsFromContext returns the caller's claims set by Middleware.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(ctxKey{}).(*Claims)
	return c
}

// WithClaims stores claims in ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// Middleware rejects requests without a valid bearer token.
func Middleware(tokens *Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				log.Ctx(ctx).Warn().Msg("missing or invalid authorization header")
				httpx.ErrUnAuthorized("No token provided").Send(w)
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

			claims, err := tokens.Validate(token)
			if err != nil {
				log.Ctx(ctx).Warn().Err(err).Msg("token validation failed")
				if errors.Is(err, ErrTokenExpired) {
					httpx.ErrUnAuthorized(ErrTokenExpired.Error()).Send(w)
				} else {
					httpx.ErrUnAuthorized(ErrInvalidToken.Error()).Send(w)
				}
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(ctx, claims)))
		})
	}
}

// RequireRole lets through only callers whose role is one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := ClaimsFromContext(r.Context())
			if c == nil {
				httpx.ErrUnAuthorized().Send(w)
				return
			}
			for _, role := range roles {
				if c.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			log.Ctx(r.Context()).Warn().Str("role", c.Role).Msg("role not permitted")
			httpx.ErrForbidden(ErrNotPermitted.Error()).Send(w)
		})
	}
}
