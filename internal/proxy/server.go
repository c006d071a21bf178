package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"claude-router/internal/adapter"
	"claude-router/internal/adapter/openaichat"
	"claude-router/internal/adapter/openairesponses"
	"claude-router/internal/config"
	"claude-router/internal/observability/middleware"
	"claude-router/internal/router"
	"claude-router/internal/upstream"
)

// maxRequestBytes bounds inbound bodies; large agent conversations with
// base64 images fit comfortably.
const maxRequestBytes = 50 << 20

// Server is the gateway HTTP server: the messages endpoint, health probes,
// and a passthrough catch-all for every other Anthropic API path.
type Server struct {
	handler    http.Handler
	httpServer *http.Server
}

// New assembles the server over a config store and readiness checker.
func New(store *config.Store, checker ReadinessChecker) *Server {
	pool := upstream.NewPool()
	passthrough := &adapter.Passthrough{Pool: pool}

	messages := &MessagesHandler{
		Store:  store,
		Engine: router.New(),
		Adapters: map[string]adapter.Adapter{
			config.AdapterOpenAIResponses:       openairesponses.New(pool),
			config.AdapterOpenAIChatCompletions: openaichat.New(pool),
		},
		Passthrough: passthrough,
	}

	mux := http.NewServeMux()
	mux.Handle("POST /v1/messages", messages)
	mux.Handle("GET /healthz", livenessHandler())
	mux.Handle("GET /readyz", readinessHandler(checker))
	// Everything else is forwarded verbatim so clients can use token
	// counting, model listing and future endpoints unchanged.
	mux.Handle("/", passthroughHandler(store, passthrough))

	handler := applyMiddlewares(mux,
		Recovery,
		RequestSizeLimit(maxRequestBytes),
		middleware.RequestIDGeneration,
		middleware.TraceContextExtraction,
		middleware.Logging(slog.Default()),
		middleware.RequestIDPropagation,
	)

	return &Server{handler: handler}
}

// Handler exposes the assembled handler chain, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on addr and serves until Shutdown. Returns a channel carrying
// the terminal serve error, if any.
func (s *Server) Start(ctx context.Context, addr string) (<-chan error, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		// No WriteTimeout: SSE responses stay open for the duration of the
		// upstream stream, bounded by the request context.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.InfoContext(ctx, "gateway listening", "addr", listener.Addr().String())
	return errCh, nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// passthroughHandler forwards arbitrary requests to the original backend.
func passthroughHandler(store *config.Store, p *adapter.Passthrough) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to read passthrough body", "error", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		p.Forward(w, r, store.Current(), body)
	})
}
