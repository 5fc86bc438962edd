package middleware

import (
	"net/http"
	"runtime/debug"

	perr "retrosignal/internal/platform/errors"
	"retrosignal/internal/platform/logger"
	phttp "retrosignal/internal/platform/net/http"
)

// Recover turns a handler panic into a 500 error envelope and logs the stack
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			reqID := phttp.RequestID(r)
			logger.C(r.Context()).Error().
				Str("request_id", reqID).
				Interface("panic", v).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")
			if reqID != "" {
				w.Header().Set("X-Request-ID", reqID)
			}
			phttp.WriteError(w, r, perr.PanicErrf("panic recovered"))
		}()
		next.ServeHTTP(w, r)
	})
}
