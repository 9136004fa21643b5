// Package middleware provides the request logging, timeout and panic recovery
// middleware of the development API.
package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/combatwarrior/academy/internal/common/httpclient"
	"github.com/combatwarrior/academy/internal/common/httpx"
	"github.com/combatwarrior/academy/internal/common/logtrace"
	"github.com/combatwarrior/academy/internal/common/uuid"
)

// RequestIDHeader is the same header the client gateway sends.
const RequestIDHeader = httpclient.RequestIDHeader

// RequestLogger logs each request and its outcome under a request ID. A valid ID
// sent by the client is reused so both sides log the same value.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()

		requestID := r.Header.Get(RequestIDHeader)
		if !uuid.IsValid(requestID) {
			requestID = uuid.RequestID()
		}
		ctx = logtrace.WithRequestID(ctx, requestID)
		ctx = log.With().Str("request_id", requestID).Logger().WithContext(ctx)

		rw := httpx.NewResponseWriter(w)
		rw.Header().Set(RequestIDHeader, requestID)

		log.Ctx(ctx).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_ip", r.RemoteAddr).
			Str("proto", r.Proto).
			Msg("incoming request")

		defer func() {
			log.Ctx(ctx).Info().
				Int("status", rw.Status()).
				Int("bytes", rw.Size()).
				Str("duration", fmt.Sprintf("%dms", time.Since(start).Milliseconds())).
				Msg("request completed")
		}()

		next.ServeHTTP(rw, r.WithContext(ctx))
	})
}
