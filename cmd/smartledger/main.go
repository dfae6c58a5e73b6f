package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"smartledger/internal/alerts"
	"smartledger/internal/cache"
	"smartledger/internal/cli"
	apphttp "smartledger/internal/http"
	"smartledger/internal/log"
	"smartledger/internal/services"
)

const (
	shutdownTimeout = 30 * time.Second
	sweepInterval   = 5 * time.Minute
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, os.Stdout)

	sessions, err := cli.NewSessionService(cfg, logger)
	if err != nil {
		if cli.IsConfigError(err) {
			logger.Error("Session configuration invalid", log.FieldError, err)
		} else {
			logger.Error("Failed to initialize sessions", log.FieldError, err)
		}
		os.Exit(1)
	}

	formatter, err := alerts.NewFormatter(cfg.AlertLocale, cfg.AlertCurrency)
	if err != nil {
		logger.Error("Invalid alert formatting settings", log.FieldError, err)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	detectors := alerts.DefaultDetectors(time.Now, formatter)
	engine := alerts.NewEngine(detectors, alerts.WithConcurrency(cfg.DetectorConcurrency))
	alertSvc := services.NewAlertService(repo)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Dependencies{
		Auth:         services.NewAuthService(repo, sessions, cfg.PasswordIterations),
		Transactions: services.NewTransactionService(repo, engine, alertSvc),
		Budgets:      services.NewBudgetService(repo),
		Reports:      services.NewReportService(repo),
		Alerts:       alertSvc,
		Store:        repo,
		Logger:       logger,
	}, apphttp.Options{
		CookieName:         cfg.SessionCookieName,
		CookieSecure:       cfg.SessionCookieSecure,
		LoginRatePerMinute: cfg.LoginRatePerMinute,
	})

	janitor := cache.NewJanitor()
	janitor.Register(alertSvc.Cache())
	janitor.Register(srv.LoginLimiter())
	janitor.Start(sweepInterval)

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		janitor.Stop()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting smartledger server",
		"port", cfg.Port, "app_env", cfg.AppEnv, "detectors", len(detectors))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
