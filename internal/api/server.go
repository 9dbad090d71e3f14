package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/tphakala/cropdoc/internal/analysis"
	mw "github.com/tphakala/cropdoc/internal/api/middleware"
	v2 "github.com/tphakala/cropdoc/internal/api/v2"
	"github.com/tphakala/cropdoc/internal/conf"
	"github.com/tphakala/cropdoc/internal/datastore"
	"github.com/tphakala/cropdoc/internal/errors"
	"github.com/tphakala/cropdoc/internal/logger"
	"github.com/tphakala/cropdoc/internal/observability"
)

// Server is the HTTP server. It owns the Echo instance, the middleware
// stack and the v2 controller.
type Server struct {
	echo     *echo.Echo
	config   *Config
	settings *conf.Settings
	log      logger.Logger

	analyzer  *analysis.Analyzer
	dataStore datastore.Interface
	metrics   *observability.Metrics

	apiController *v2.Controller

	mu       sync.Mutex
	listener net.Listener
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithDataStore sets the datastore for the server.
func WithDataStore(ds datastore.Interface) ServerOption {
	return func(s *Server) {
		s.dataStore = ds
	}
}

// WithMetrics sets the observability metrics for the server.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithConfig overrides the config derived from settings.
func WithConfig(cfg *Config) ServerOption {
	return func(s *Server) {
		s.config = cfg
	}
}

// New creates a new HTTP server with the given settings and options.
func New(settings *conf.Settings, analyzer *analysis.Analyzer, opts ...ServerOption) (*Server, error) {
	s := &Server{
		config:   ConfigFromSettings(settings),
		settings: settings,
		analyzer: analyzer,
		log:      GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.config.Validate(); err != nil {
		return nil, errors.New(fmt.Errorf("invalid server configuration: %w", err)).
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = s.config.Debug

	s.echo.Server.ReadTimeout = s.config.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.WriteTimeout
	s.echo.Server.IdleTimeout = s.config.IdleTimeout

	s.setupMiddleware()

	if err := s.setupRoutes(); err != nil {
		return nil, err
	}

	s.log.Info("HTTP server initialized",
		logger.String("address", s.config.Address()),
		logger.String("body_limit", s.config.BodyLimit),
		logger.Bool("history", s.dataStore != nil))

	return s, nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())

	s.echo.Use(mw.RequestLog(s.log, "/health", "/metrics"))

	if s.metrics != nil {
		s.echo.Use(mw.NewMetrics(s.metrics.HTTP))
	}

	s.echo.Use(mw.Security(s.config.AllowedOrigins, s.config.BodyLimit)...)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() error {
	var opts []v2.Option
	if s.dataStore != nil {
		opts = append(opts, v2.WithDataStore(s.dataStore))
	}
	if s.metrics != nil {
		opts = append(opts, v2.WithMetrics(s.metrics))
	}

	controller, err := v2.New(s.echo, s.analyzer, s.settings, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize API v2: %w", err)
	}
	s.apiController = controller
	return nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		return errors.New(err).
			Component("api").
			Category(errors.CategoryNetwork).
			Context("address", s.config.Address()).
			Build()
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.echo.Listener = ln

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start("")
	}()
	s.log.Info("HTTP server listening", logger.String("address", ln.Addr().String()))

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	return s.Shutdown()
}

// Addr returns the bound address once Run has started listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		s.log.Error("error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}

	s.log.Info("HTTP server shutdown complete")
	return nil
}

// APIController returns the v2 API controller.
func (s *Server) APIController() *v2.Controller {
	return s.apiController
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
