package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog/log"

	"github.com/combatwarrior/academy/internal/common/httpx"
)

// Recover turns a handler panic into a 500 envelope. Nothing is written when
// the handler had already started its reply.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := httpx.NewResponseWriter(w)
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			log.Ctx(r.Context()).Error().
				Interface("panic", v).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Bytes("stack", debug.Stack()).
				Msg("handler panicked")
			if !rw.Written() {
				httpx.ErrApplicationError("unable to process request").Send(rw)
			}
		}()
		next.ServeHTTP(rw, r)
	})
}
