package proxy

import (
	"net/http"

	"claude-router/internal/anthropic"
)

// Recovery turns handler panics into Anthropic-shaped 500 responses, matching
// the error envelope clients of the messages endpoint expect. Panics are
// logged by the logging middleware.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recover() != nil {
				writeJSON(r.Context(), w,
					anthropic.NewError(anthropic.ErrTypeAPI, "internal server error"),
					http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// RequestSizeLimit caps inbound body size. Handlers reading past the limit
// get *http.MaxBytesError, which the messages handler maps to 413.
func RequestSizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// applyMiddlewares wraps h so the first middleware in the list is the
// outermost.
func applyMiddlewares(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
