package main

import (
	"context"
	"os"
	"time"

	"saldo/internal/amqp"
	"saldo/internal/cli"
	"saldo/internal/config"
	"saldo/internal/log"
	"saldo/internal/sheets"
	"saldo/internal/storage"
	"saldo/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentWorker, (*config.Config).ValidateWorker)
	logger.Info("Starting ledger worker", log.FieldOperation, log.OpStartup)

	// The worker reads the records the store wrote to the shared database.
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err.Error(), "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	exporter, err := sheets.New(context.Background(), sheets.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		CredentialsFile: cfg.GoogleServiceAccountFile,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets exporter", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Google Sheets exporter initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer amqpClient.Close()

	mirrorCfg := worker.DefaultConfig()
	mirrorCfg.Owner = cfg.SheetsOwner
	mirror := worker.NewMirror(repo, exporter, amqpClient, mirrorCfg, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := mirror.Stop(ctx); err != nil {
			logger.Error("Mirror shutdown error", log.FieldError, err.Error())
		}
	})

	if err := mirror.Start(ctx); err != nil {
		logger.Error("Failed to start mirror", log.FieldError, err.Error())
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
