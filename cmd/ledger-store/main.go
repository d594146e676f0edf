package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"saldo/internal/backend"
	"saldo/internal/cli"
	"saldo/internal/config"
	apphttp "saldo/internal/http"
	"saldo/internal/log"
	"saldo/internal/services"
	"saldo/internal/taxonomy"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp, (*config.Config).ValidateStore)

	categories := taxonomy.Default()
	if cfg.CategoryAliasesFile != "" {
		m, err := taxonomy.Load(cfg.CategoryAliasesFile)
		if err != nil {
			logger.Error("Failed to load category aliases", log.FieldError, err.Error(), "path", cfg.CategoryAliasesFile)
			os.Exit(1)
		}
		categories = m
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err.Error())
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", log.FieldError, err.Error(), "backend", cfg.DataBackend)
		os.Exit(1)
	}

	auth := services.NewAuthService(result.Repository, cfg.TokenTTL, logger)
	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Categories:         categories,
		Logger:             logger,
	}, result.Ledger, auth)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 35 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err.Error())
		}
	})

	logger.Info("Starting ledger store",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp", cfg.AMQPURL != "",
		log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
