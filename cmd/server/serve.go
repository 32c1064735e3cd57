package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"pulsewatch/backend/internal/config"
	domain "pulsewatch/backend/internal/domain/auth"
	"pulsewatch/backend/internal/httpserver"
	"pulsewatch/backend/internal/infrastructure/memory"
	"pulsewatch/backend/internal/infrastructure/password"
	"pulsewatch/backend/internal/infrastructure/postgres"
	"pulsewatch/backend/internal/infrastructure/token"
	"pulsewatch/backend/internal/logging"
	authusecase "pulsewatch/backend/internal/usecase/auth"
	userusecase "pulsewatch/backend/internal/usecase/user"
	"pulsewatch/backend/internal/validation"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	memoryStore bool
	skipMigrate bool
}

func (o *serveOptions) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.memoryStore, "memory-store", false, "keep users in process memory instead of PostgreSQL")
	cmd.Flags().BoolVar(&o.skipMigrate, "skip-migrate", false, "do not apply pending migrations on startup")
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Load configuration from the environment (and an optional .env file),
connect to PostgreSQL, apply migrations and serve the HTTP API until
SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
	opts.bind(cmd)
	return cmd
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	cfg, err := config.Load()
	if err != nil {
		cmd.PrintErrln(err)
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	logger := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat).With("env", cfg.Env)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openUserStore(ctx, cfg, opts, logger)
	if err != nil {
		logger.Error("user store unavailable", "error", err)
		return err
	}
	defer store.close()
	users := store.users

	tokenManager := token.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiry)
	hasher := password.NewArgon2idHasher(password.DefaultParams)

	server := httpserver.NewServer(cfg, httpserver.Deps{
		AuthService: authusecase.NewService(users, hasher, tokenManager),
		UserService: userusecase.NewService(users),
		Validator:   validation.New(),
		Metrics:     httpserver.NewMetrics(),
		Health:      store.ping,
		Logger:      logger,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", server.Addr())
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("server error", "error", err)
		return oops.Code("SERVER_FAILED").With("addr", server.Addr()).Wrap(err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return oops.Code("SHUTDOWN_FAILED").Wrap(err)
	}
	<-errCh
	logger.Info("graceful shutdown completed")
	return nil
}

type userStore struct {
	users domain.UserRepository
	ping  httpserver.HealthCheck
	close func()
}

func openUserStore(ctx context.Context, cfg config.Config, opts *serveOptions, logger *slog.Logger) (*userStore, error) {
	if opts.memoryStore {
		if cfg.Env == config.EnvProduction {
			return nil, oops.Code("CONFIG_INVALID").Errorf("--memory-store is not allowed when APP_ENV=%s", cfg.Env)
		}
		logger.Warn("using in-memory user store; data is lost on exit")
		return &userStore{users: memory.NewUserRepository(), close: func() {}}, nil
	}

	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	if !opts.skipMigrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
		}
	}
	return &userStore{
		users: postgres.NewUserRepository(db.Pool),
		ping:  db.Ping,
		close: db.Close,
	}, nil
}
