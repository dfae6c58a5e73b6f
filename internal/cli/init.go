// Package cli holds the start-up steps shared by cmd/smartledger and
// cmd/adduser.
package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"smartledger/internal/config"
	"smartledger/internal/log"
	"smartledger/internal/session"
	"smartledger/internal/storage"
)

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile(filenames ...string) {
	_ = godotenv.Load(filenames...)
}

// SetupLogger builds the process logger from cfg and installs it as the
// slog default.
func SetupLogger(cfg *config.Config, out io.Writer) *log.Logger {
	logger := log.New(log.Config{
		Level:  cfg.SlogLevel(),
		Format: cfg.LogFormat,
		Output: out,
	})
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and exits on any problem.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.New(log.DefaultConfig()).Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite opens the ledger database and applies migrations, exiting on
// failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// NewSessionService builds the token service from cfg. Without a secret it
// falls back to an ephemeral one only when cfg allows it, and says so loudly.
func NewSessionService(cfg *config.Config, logger *log.Logger) (*session.Service, error) {
	var (
		signer *session.Signer
		err    error
	)
	if cfg.UseEphemeralSecret() {
		signer, err = session.NewEphemeralSigner()
		logger.WithComponent(log.ComponentSession).Warn(
			"Using an ephemeral session secret; sessions will not survive a restart",
			"app_env", cfg.AppEnv)
	} else {
		signer, err = session.NewSigner(cfg.SessionSecret)
	}
	if err != nil {
		return nil, err
	}
	return session.NewService(signer, session.WithTTL(cfg.SessionTTL))
}

// IsConfigError reports whether err is a start-up configuration problem.
func IsConfigError(err error) bool {
	var cfgErr *session.ConfigError
	return errors.As(err, &cfgErr)
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. cleanup
// runs with a context bounded by timeout before the returned channel closes.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		}
		cancel()
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until shutdown has finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
