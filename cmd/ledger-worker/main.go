package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	applog "fintrack/internal/log"
	"fintrack/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentWorker, (*config.Config).ValidateWorker)

	logger.Info("Starting ledger-worker")

	mirrorCfg, err := backend.MirrorFromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid mirror configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	replica := cli.InitBackend(ctx, logger, mirrorCfg)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client",
			applog.NewFields().WithError(err, applog.ErrorTypeNetwork).ToSlice()...)
		replica.Close()
		os.Exit(1)
	}

	mirror := worker.NewMirrorWorker(replica.Store, logger)

	logger.Info("Consuming ledger messages",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		applog.FieldBackend, replica.Type.String())

	exitCode := 0
	if err := amqpClient.Consume(ctx, mirror.Handle); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		exitCode = 1
	}

	cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) error {
		applied, dropped := mirror.Stats()
		logger.Info("Mirror totals", "applied", applied, "dropped", dropped)
		return errors.Join(amqpClient.Close(), replica.Close())
	})
	os.Exit(exitCode)
}
