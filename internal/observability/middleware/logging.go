package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/httplog/v3"
)

// Logging logs one line per request with method, path, status and duration,
// plus whatever attributes handlers attach via SetLogAttrs (request id, trace
// ids, routing decision). Health probes are noisy and skipped unless they
// fail.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return httplog.RequestLogger(logger, &httplog.Options{
		Schema: httplog.SchemaECS.Concise(true),

		Skip: func(req *http.Request, respStatus int) bool {
			return (req.URL.Path == "/healthz" || req.URL.Path == "/readyz") && respStatus < 500
		},

		// Bodies and most headers stay out of the logs: requests carry
		// credentials and whole conversations.
		LogRequestHeaders:  []string{"Content-Type", "Anthropic-Version"},
		LogResponseHeaders: []string{},
		LogRequestBody:     nil,
		LogResponseBody:    nil,

		RecoverPanics: false, // the proxy package carries its own recovery middleware
	})
}

// SetLogAttrs attaches attributes to the request log line.
func SetLogAttrs(ctx context.Context, attrs ...slog.Attr) {
	httplog.SetAttrs(ctx, attrs...)
}
