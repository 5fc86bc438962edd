package httpkit

import (
	"compress/flate"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"retrosignal/internal/platform/logger"
	phttp "retrosignal/internal/platform/net/http"
	"retrosignal/internal/platform/net/middleware"
)

// Middleware wraps a handler
type Middleware = func(http.Handler) http.Handler

// CommonStack is the middleware every API route runs behind, outermost first
func CommonStack() []Middleware {
	return []Middleware{
		chimw.RequestID,
		chimw.RealIP,
		middleware.Recover,
		chimw.NoCache,
		middleware.AccessLog(500 * time.Millisecond),
		middleware.CORS(),
		chimw.Compress(flate.BestSpeed),
		chimw.Heartbeat("/health"),
		chimw.RedirectSlashes,
		chimw.StripSlashes,
		chimw.Timeout(30 * time.Second),
	}
}

// MountAPIV1 mounts the routes registered by mount under /api/v1 behind mw
func MountAPIV1(r Router, mw []Middleware, mount func(Router)) {
	MountUnder(r, "/api/v1", mw, mount)
}

// MountUnder mounts the routes registered by mount under prefix behind mw
func MountUnder(r Router, prefix string, mw []Middleware, mount func(Router)) {
	r.Route(prefix, func(sub Router) {
		if len(mw) > 0 {
			sub.Use(mw...)
		}
		mount(sub)
	})
}

// DirectiveScope tags the request logger with the request id and the
// directive id captured by the path param
func DirectiveScope(param string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logger.WithRequest(r.Context(), phttp.RequestID(r), Param(r, param))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
