package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"expensetracker/internal/amqp"
	"expensetracker/internal/cli"
	"expensetracker/internal/log"
	"expensetracker/internal/services"
)

func main() {
	os.Exit(run())
}

func run() int {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// service.Close releases the repository.
	repo, _, err := cli.OpenRepository(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to open repository", log.FieldBackend, cfg.DataBackend, log.FieldError, err)
		return 1
	}

	opts := []services.ServiceOption{services.WithLogger(logger)}
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			// Local records stay authoritative; the mirror catches up with `sync`.
			logger.Warn("AMQP unavailable, continuing without events", log.FieldError, err)
		} else {
			opts = append(opts, services.WithPublisher(client))
		}
	}

	service := services.NewExpenseService(repo, opts...)
	defer func() {
		if err := service.Close(); err != nil {
			logger.Warn("Close failed", log.FieldError, err)
		}
	}()

	app := &cli.App{
		Service: service,
		Repo:    repo,
		Config:  cfg,
		Logger:  logger,
		In:      os.Stdin,
		Out:     os.Stdout,
		Err:     os.Stderr,
	}
	if err := app.Run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			return 2
		}
		if errors.Is(err, context.Canceled) {
			return 130
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
