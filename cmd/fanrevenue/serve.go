package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"fanrevenue/internal/cli"
	apphttp "fanrevenue/internal/http"
	applog "fanrevenue/internal/log"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := cli.LoadAndValidateConfig(logger)
	if err != nil {
		return err
	}

	app, err := cli.Bootstrap(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Failed to release resources", applog.FieldError, err)
		}
	}()

	warmCtx, cancelWarm := context.WithTimeout(cmd.Context(), time.Minute)
	if err := app.Service.Warm(warmCtx, app.Primary.Repository); err != nil {
		// Creators that failed to warm are loaded on first access.
		logger.Warn("Startup warm-up incomplete", applog.FieldError, err)
	}
	cancelWarm()

	srv := apphttp.NewServer(":"+cfg.Port, app.Service,
		apphttp.WithReadiness(app.Ready),
		apphttp.WithLogger(logger),
	)

	ctx, done := cli.GracefulShutdown(cmd.Context(), logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	logger.Info("Starting fanrevenue",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"timezone", cfg.Timezone)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		return fmt.Errorf("listen on :%s: %w", cfg.Port, err)
	}

	cli.WaitForShutdown(ctx, done)
	return nil
}
