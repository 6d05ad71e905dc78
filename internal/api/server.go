// Package api provides the HTTP and WebSocket surface of MCULink Core.
//
// It exposes account registration and login, a health endpoint, and the
// relay WebSocket endpoint that user apps and MCU devices connect to.
//
// The server follows the same lifecycle pattern as the infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start()
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mculink/mculink-core/internal/auth"
	"github.com/mculink/mculink-core/internal/bus"
	"github.com/mculink/mculink-core/internal/infrastructure/config"
	"github.com/mculink/mculink-core/internal/infrastructure/logging"
	"github.com/mculink/mculink-core/internal/relay"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker reports the liveness of one backing component.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	Relay     config.RelayConfig
	Security  config.SecurityConfig
	Logger    *logging.Logger
	Users     auth.UserRepository
	Auth      auth.Provider
	Bus       bus.Bus
	Telemetry relay.Telemetry // optional
	Database  HealthChecker   // optional, reported by /health
	Broker    HealthChecker   // optional, reported by /health
	Version   string
}

// Server is the HTTP server for MCULink Core.
//
// It manages the HTTP listener, routes, middleware, and the relay
// WebSocket endpoint. The server is created with New() and started with
// Start().
type Server struct {
	cfg       config.APIConfig
	relayCfg  config.RelayConfig
	secCfg    config.SecurityConfig
	logger    *logging.Logger
	users     auth.UserRepository
	auth      auth.Provider
	bus       bus.Bus
	telemetry relay.Telemetry
	database  HealthChecker
	broker    HealthChecker
	version   string
	server    *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("auth provider is required")
	}
	if deps.Bus == nil {
		return nil, fmt.Errorf("channel bus is required")
	}

	return &Server{
		cfg:       deps.Config,
		relayCfg:  deps.Relay,
		secCfg:    deps.Security,
		logger:    deps.Logger,
		users:     deps.Users,
		auth:      deps.Auth,
		bus:       deps.Bus,
		telemetry: deps.Telemetry,
		database:  deps.Database,
		broker:    deps.Broker,
		version:   deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It builds the router and launches the listener in a background
// goroutine. The server is stopped with Close(); relay sessions are
// bounded by their own request contexts, so Start takes none.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete, then
// forcefully closes remaining connections. Active relay sessions are torn
// down by their own close handling when their sockets drop.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
