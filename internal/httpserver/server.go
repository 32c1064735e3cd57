package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"pulsewatch/backend/internal/config"
	authusecase "pulsewatch/backend/internal/usecase/auth"
	userusecase "pulsewatch/backend/internal/usecase/user"
	"pulsewatch/backend/internal/validation"
)

// Server wraps the HTTP server lifecycle.
type Server struct {
	httpServer  *http.Server
	router      *http.ServeMux
	authService *authusecase.Service
	userService *userusecase.Service
	validator   *validation.Validator
	metrics     *Metrics
	health      HealthCheck
	logger      *slog.Logger
	addr        string
}

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Deps groups the collaborators the server needs. Metrics and Health may
// be nil.
type Deps struct {
	AuthService *authusecase.Service
	UserService *userusecase.Service
	Validator   *validation.Validator
	Metrics     *Metrics
	Health      HealthCheck
	Logger      *slog.Logger
}

// NewServer constructs a new Server with configured dependencies.
func NewServer(cfg config.Config, deps Deps) *Server {
	mux := http.NewServeMux()
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	validator := deps.Validator
	if validator == nil {
		validator = validation.New()
	}

	srv := &Server{
		router:      mux,
		authService: deps.AuthService,
		userService: deps.UserService,
		validator:   validator,
		metrics:     deps.Metrics,
		health:      deps.Health,
		logger:      logger,
		addr:        cfg.Addr(),
	}
	srv.registerRoutes()

	handler := withObservability(
		withCORS(
			withSecurityHeaders(
				withRecovery(mux, logger),
			),
			cfg.AllowedOrigins,
		),
		logger,
		deps.Metrics,
	)

	srv.httpServer = &http.Server{
		Addr:         srv.addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeoutSec) * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
	return srv
}

// Start bootstraps the HTTP server on the configured address.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the fully wrapped request handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the configured network address for the HTTP server.
func (s *Server) Addr() string {
	return s.addr
}
