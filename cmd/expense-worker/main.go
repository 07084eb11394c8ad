package main

import (
	"context"
	"errors"
	"os"

	"expensetracker/internal/amqp"
	"expensetracker/internal/cli"
	"expensetracker/internal/log"
	"expensetracker/internal/services"
	"expensetracker/internal/sheets"
	"expensetracker/internal/storage"
	"expensetracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel)

	logger.Info("Starting expense-worker", log.FieldOperation, log.OpStartup)

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	mirror, err := storage.NewSQLiteRepository(cfg.MirrorDBPath, logger)
	if err != nil {
		logger.Error("Failed to open mirror database", log.FieldPath, cfg.MirrorDBPath, log.FieldError, err)
		os.Exit(1)
	}

	// Kept as the interface type so a disabled sheet is a nil interface.
	var sheet sheets.Sheet
	if cfg.SheetsEnabled() {
		client, err := cli.OpenSheet(context.Background(), cfg, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			mirror.Close()
			os.Exit(1)
		}
		sheet = client
		logger.Info("Google Sheets mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		mirror.Close()
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func() {
		if err := client.Close(); err != nil {
			logger.Warn("AMQP close failed", log.FieldError, err)
		}
		if err := mirror.Close(); err != nil {
			logger.Warn("Mirror close failed", log.FieldError, err)
		}
	})

	// Rows that reached the mirror but not the sheet, e.g. after a crash
	// between the two writes.
	if sheet != nil {
		results, err := services.NewMirror(mirror, logger, services.NewSheetSink("sheets", sheet)).Sync(ctx)
		if err != nil {
			logger.Error("Startup reconciliation failed", log.FieldError, err)
		}
		for _, r := range results {
			logger.Info("Startup reconciliation",
				log.FieldSink, r.Sink,
				log.FieldCount, r.Pushed,
				log.FieldSkipped, r.Skipped,
				log.FieldRemoved, r.Removed)
		}
	}

	h := worker.NewEventWorker(mirror, sheet, logger)
	go func() {
		if err := client.ConsumeExpenseEvents(ctx, h.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Event consumption stopped", log.FieldOperation, log.OpConsume, log.FieldError, err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
}
