package main

import (
	"context"
	"errors"
	"os"
	"time"

	"finanze/internal/amqp"
	"finanze/internal/cli"
	"finanze/internal/log"
	"finanze/internal/services"
	"finanze/internal/settings"
	"finanze/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig()
	if err != nil {
		cli.SetupLogger("info").Error("Configuration could not be loaded", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(log.ComponentWorker)
	logger.Info("Starting finanze-worker")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required to consume export jobs")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.DBPath())
	defer repo.Close()

	settingsStore, err := settings.NewStore(cfg.SettingsPath(), logger)
	if err != nil {
		logger.Error("Failed to open settings", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer settingsStore.Close()

	sheetsClient, err := cli.InitSheets(context.Background(), cfg, logger)
	if err != nil {
		os.Exit(1)
	}
	if sheetsClient == nil {
		logger.Error("Google credentials are required to run exports")
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer amqpClient.Close()

	// No publisher: jobs taken from the queue run in this process.
	exporter := services.NewExportService(repo, settingsStore, sheetsClient, nil, cfg.ExportWorkers, logger)
	exportWorker := worker.NewExportWorker(exporter)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	go func() {
		err := amqpClient.ConsumeExportJobs(ctx, exportWorker.HandleExportJob)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err.Error())
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
