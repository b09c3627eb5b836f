package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/deployhub/deployhub/internal/core/domain"
	"github.com/deployhub/deployhub/internal/shell/api"
	"github.com/deployhub/deployhub/internal/shell/caprover"
	"github.com/deployhub/deployhub/internal/shell/orchestrator"
	"github.com/deployhub/deployhub/internal/shell/store"
	"github.com/deployhub/deployhub/internal/shell/workers"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess         = 0
	ExitConfigError     = 1
	ExitDatabaseError   = 2
	ExitSeedError       = 3
	ExitHTTPServerError = 4
)

// ServerError wraps errors with an exit code for the main function.
type ServerError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServerError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Server
// =============================================================================

// Server wires together the store, workers, and HTTP handler.
type Server struct {
	config       *Config
	logger       *slog.Logger
	store        store.Store
	statusPoller *workers.StatusPoller
	httpServer   *http.Server
}

// NewServer creates a fully wired server from configuration.
func NewServer(cfg *Config, logger *slog.Logger) (*Server, error) {
	// Open database and run migrations
	st, err := store.NewSQLiteStore(cfg.Database.DSN)
	if err != nil {
		return nil, &ServerError{
			Op:       "open database",
			Err:      err,
			ExitCode: ExitDatabaseError,
		}
	}

	// Seed the admin account before serving traffic
	if err := EnsureAdmin(context.Background(), st, cfg.Admin, logger); err != nil {
		st.Close()
		return nil, &ServerError{
			Op:       "seed admin account",
			Err:      err,
			ExitCode: ExitSeedError,
		}
	}

	// Platform factory: admin settings override the static config fallback
	factory := orchestrator.NewSettingsFactory(st, caprover.Config{
		BaseURL:   cfg.CapRover.URL,
		Password:  cfg.CapRover.Password,
		Namespace: cfg.CapRover.Namespace,
		Timeout:   cfg.CapRover.Timeout,
	}, logger)

	coordinator := orchestrator.NewCoordinator(st, factory, logger)

	var statusPoller *workers.StatusPoller
	if cfg.Poller.Enabled {
		pollerCfg := workers.DefaultStatusPollerConfig()
		if cfg.Poller.Interval > 0 {
			pollerCfg.Interval = cfg.Poller.Interval
		}
		if cfg.Poller.CycleTimeout > 0 {
			pollerCfg.CycleTimeout = cfg.Poller.CycleTimeout
		}
		statusPoller = workers.NewStatusPoller(st, factory, pollerCfg, logger)
	}

	handler := api.NewHandler(st, coordinator, logger)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		config:       cfg,
		logger:       logger,
		store:        st,
		statusPoller: statusPoller,
		httpServer:   httpServer,
	}, nil
}

// Start runs the server until a shutdown signal arrives.
func (s *Server) Start(ctx context.Context) error {
	if s.statusPoller != nil {
		s.statusPoller.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "address", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		s.shutdown()
		return &ServerError{
			Op:       "http server",
			Err:      err,
			ExitCode: ExitHTTPServerError,
		}
	case sig := <-sigCh:
		s.logger.Info("shutdown signal received", "signal", sig.String())
		return s.Shutdown()
	case <-ctx.Done():
		s.logger.Info("context canceled, shutting down")
		return s.Shutdown()
	}
}

// Shutdown gracefully stops the HTTP server, workers, and store.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	var firstErr error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("http server shutdown failed", "error", err)
		firstErr = err
	}

	s.shutdown()

	if firstErr != nil {
		return &ServerError{
			Op:       "shutdown",
			Err:      firstErr,
			ExitCode: ExitHTTPServerError,
		}
	}
	s.logger.Info("shutdown complete")
	return nil
}

// shutdown stops background workers and closes the store.
func (s *Server) shutdown() {
	if s.statusPoller != nil {
		s.statusPoller.Stop()
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error("failed to close store", "error", err)
	}
}

// =============================================================================
// Admin Seeding
// =============================================================================

// EnsureAdmin creates the configured admin account when it does not exist.
// Seeding is skipped entirely when no admin password is configured.
func EnsureAdmin(ctx context.Context, st store.Store, cfg AdminConfig, logger *slog.Logger) error {
	if cfg.Password == "" {
		logger.Warn("no admin password configured, skipping admin seeding")
		return nil
	}

	_, err := st.GetUserByEmail(ctx, cfg.Email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	name := cfg.Name
	if name == "" {
		name = "Administrator"
	}
	admin, err := domain.NewUser(cfg.Email, name, cfg.Password, domain.RoleAdmin)
	if err != nil {
		return err
	}
	if err := st.CreateUser(ctx, admin); err != nil {
		return err
	}

	logger.Info("seeded admin account", "email", cfg.Email, "user_id", admin.ID)
	return nil
}
