package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/combatwarrior/academy/internal/common/httpx"
)

// TimeoutHeader advertises the server's per-request budget to clients.
const TimeoutHeader = "X-Academy-Timeout"

// RequestTimeout gives every request a deadline of d. Handlers are expected to
// honour the request context; one that gives up without replying gets a 408.
func RequestTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			rw := httpx.NewResponseWriter(w)
			rw.Header().Set(TimeoutHeader, d.String())
			next.ServeHTTP(rw, r.WithContext(ctx))

			if rw.Written() || !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return
			}
			log.Ctx(ctx).Warn().Str("path", r.URL.Path).Dur("timeout", d).Msg("request timed out")
			httpx.ErrRequestTimeout().Send(rw)
		})
	}
}
