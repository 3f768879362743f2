package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/hkakademi/media/internal/response"
)

// Recover converts handler panics into 500 responses so a single bad request
// cannot take down the server.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic recovered",
					"error", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				response.InternalError(w, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
