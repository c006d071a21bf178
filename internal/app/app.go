package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"claude-router/internal/config"
	"claude-router/internal/proxy"
)

// App orchestrates the lifecycle of the gateway server and config watcher.
type App struct {
	store  *config.Store
	server *proxy.Server
	health *Health
}

// New creates an App from the configuration file at configPath.
func New(configPath string) (*App, error) {
	store, err := config.NewStore(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	health := NewHealth()
	return &App{
		store:  store,
		server: proxy.New(store, health),
		health: health,
	}, nil
}

// Config returns the active configuration snapshot.
func (a *App) Config() *config.Config {
	return a.store.Current()
}

// Start starts all services and blocks until shutdown is triggered.
// Uses errgroup for runtime error monitoring and shutdown function collection for coordinated cleanup.
func (a *App) Start(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	var shutdownFuncs []func(context.Context) error

	if err := a.store.Watch(gCtx); err != nil {
		return fmt.Errorf("config watch failed: %w", err)
	}

	cfg := a.store.Current()
	slog.InfoContext(gCtx, "starting gateway server",
		"listen", cfg.Router.Listen,
		"origin", cfg.Router.OriginalBaseURL,
		"overrides", len(cfg.Overrides),
	)
	serverErrCh, err := a.server.Start(gCtx, cfg.Router.Listen)
	if err != nil {
		return fmt.Errorf("server startup failed: %w", err)
	}
	shutdownFuncs = append(shutdownFuncs, a.server.Shutdown)

	a.health.SetReady(true)

	// Monitor runtime errors - errgroup cancels context on first error
	g.Go(func() error {
		select {
		case err := <-serverErrCh:
			if err != nil {
				slog.ErrorContext(gCtx, "server runtime error", "error", err)
				return fmt.Errorf("server: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	runtimeErr := g.Wait()

	a.health.SetReady(false)
	slog.InfoContext(gCtx, "shutting down services")

	// Shutdown phase: Stop all services
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, fmt.Errorf("runtime: %w", runtimeErr))
	}

	for i := len(shutdownFuncs) - 1; i >= 0; i-- {
		if err := shutdownFuncs[i](shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "service shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("application stopped")
	return nil
}
