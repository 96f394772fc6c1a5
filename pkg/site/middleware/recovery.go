package middleware

import (
	"net/http"
	"runtime/debug"

	"arkadia-host/janus/pkg/telemetry/logging"
)

// Recovery turns a handler panic into the caller-supplied error
// response instead of killing the connection. One request's failure
// never reaches its siblings.
func Recovery(logger *logging.Logger, respond func(http.ResponseWriter)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic in handler",
						"error", err,
						"method", r.Method,
						"path", r.URL.Path,
						"request_id", logging.GetRequestID(r.Context()),
						"stack", string(debug.Stack()),
					)
					respond(w)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
