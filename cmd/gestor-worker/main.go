package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gestor/internal/amqp"
	"gestor/internal/backend"
	"gestor/internal/cli"
	"gestor/internal/config"
	"gestor/internal/log"
	"gestor/internal/worker"
)

func main() {
	cfg := cli.LoadConfig()
	logger := cli.SetupLogger(cfg)
	cli.MustValidate(logger, cfg.ValidateWorker)

	if err := run(cfg, logger); err != nil {
		logger.Error("Worker stopped", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}
	defer func() {
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Failed to close backend", log.FieldError, err)
			}
		}
	}()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return fmt.Errorf("connect broker: %w", err)
	}
	defer client.Close()

	projector := worker.NewProjector(result.Backend, logger)
	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, nil)

	logger.Info("Starting gestor projection worker",
		log.FieldOperation, log.OpStartup,
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	if err := client.Run(ctx, projector.Handle); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	<-done
	return nil
}
