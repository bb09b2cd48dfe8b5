package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"atlas/internal/amqp"
	"atlas/internal/auth"
	"atlas/internal/cli"
	apphttp "atlas/internal/http"
	"atlas/internal/log"
	"atlas/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	logger.Info("Starting atlas",
		"port", cfg.Port,
		"sqlite_db", cfg.SQLiteDBPath,
		"timezone", cfg.Timezone)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Ledger events are best effort; the API runs without a broker.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		dialCtx, cancelDial := context.WithTimeout(context.Background(), 30*time.Second)
		client, err := amqp.NewClient(dialCtx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPLedgerQueue, cfg.AMQPReminderQueue)
		cancelDial()
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, ledger events disabled", "error", err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.Info("AMQP disabled - ledger events will not be published")
	}

	clock := services.NewClock(cfg.Location())
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	authService := services.NewAuthService(repo, tokens)

	if cfg.HasAdmin() {
		created, err := authService.EnsureAdmin(context.Background(), cfg.AdminPhone, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			logger.Error("Failed to bootstrap admin user", "error", err)
			os.Exit(1)
		}
		if created {
			logger.Info("Admin user created", "phone", cfg.AdminPhone)
		}
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Auth:       authService,
		Ledger:     services.NewLedgerService(repo, publisher),
		Tracker:    services.NewTrackerService(repo, clock),
		Settings:   services.NewSettingsService(repo),
		Categories: services.NewCategoryService(repo),
		Dashboard:  services.NewDashboardService(repo, clock),
		Clock:      clock,
		Store:      repo,
	}, apphttp.Options{
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	})
	if err != nil {
		logger.Error("Failed to configure HTTP server", "error", err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("HTTP server listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
