package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fanrevenue/internal/amqp"
	"fanrevenue/internal/cli"
	"fanrevenue/internal/config"
	applog "fanrevenue/internal/log"
	"fanrevenue/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	env := config.Load()
	logger := cli.SetupLogger(env.LogLevel, env.LogFormat).WithComponent(applog.ComponentWorker)

	logger.Info("Starting fanrevenue-worker")

	cfg, err := cli.LoadAndValidateConfig(logger)
	if err != nil {
		os.Exit(1)
	}
	if cfg.AMQPURL == "" || cfg.MirrorBackend == "" {
		logger.Error("The worker needs AMQP_URL and MIRROR_BACKEND",
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		os.Exit(1)
	}

	startup, cancelStartup := context.WithTimeout(context.Background(), time.Minute)
	defer cancelStartup()

	primary, err := cli.InitPrimary(startup, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize primary repository", applog.FieldError, err)
		os.Exit(1)
	}
	defer primary.Close()

	mirror, err := cli.InitMirror(startup, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize mirror repository", applog.FieldError, err)
		os.Exit(1)
	}
	defer mirror.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	mirrorWorker := worker.NewMirrorWorker(primary.Repository, mirror.Repository,
		cfg.PersistMaxRetries, cfg.PersistRetryBackoff)

	// Events published while the worker was down are only recovered here.
	logger.Info("Performing startup resync...")
	if err := mirrorWorker.Resync(startup, primary.Repository); err != nil {
		logger.Error("Failed startup resync", applog.FieldError, err)
		// Don't exit - continue with normal operation
	}

	parent, stop := context.WithCancel(context.Background())
	defer stop()
	ctx, done := cli.GracefulShutdown(parent, logger, 30*time.Second, nil)

	go func() {
		err := amqpClient.ConsumeBucketEvents(ctx, mirrorWorker.HandleBucketEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", applog.FieldError, err)
		}
		stop()
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
