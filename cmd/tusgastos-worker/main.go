package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/IvaDonGon/TusGastos/internal/cli"
	applog "github.com/IvaDonGon/TusGastos/internal/log"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig("")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)
	defer logger.Close()

	logger.Info("Starting tusgastos-worker",
		"interval", cfg.SchedulerInterval,
		"timezone", cfg.Timezone,
		"concurrency", cfg.EnsureConcurrency)

	store, err := cli.OpenBackend(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to open data backend", "backend", cfg.DataBackend, applog.FieldError, err)
		os.Exit(1)
	}
	defer store.Close()

	// The worker exists to publish events, so a broken AMQP setup is fatal here.
	notifier, closeNotifier, err := cli.OpenNotifier(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer closeNotifier()

	app := cli.NewApp(cfg, store, notifier, logger)
	scheduler := app.Scheduler()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		stopped := make(chan struct{})
		go func() {
			scheduler.Stop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
		}
	})

	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Failed to start scheduler", applog.FieldError, err)
		os.Exit(1)
	}

	<-ctx.Done()
	<-done
	logger.Info("Worker stopped")
}
