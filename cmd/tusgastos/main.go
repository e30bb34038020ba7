package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/IvaDonGon/TusGastos/internal/cli"
	applog "github.com/IvaDonGon/TusGastos/internal/log"
	"github.com/IvaDonGon/TusGastos/internal/services"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig("")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, applog.ComponentHTTP)
	defer logger.Close()

	store, err := cli.OpenBackend(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to open data backend", "backend", cfg.DataBackend, applog.FieldError, err)
		os.Exit(1)
	}
	defer store.Close()

	notifier, closeNotifier, err := cli.OpenNotifier(cfg, logger)
	if err != nil {
		logger.Warn("AMQP unavailable, continuing without event publishing", applog.FieldError, err)
		notifier, closeNotifier = services.NopNotifier{}, func() {}
	}
	defer closeNotifier()

	app := cli.NewApp(cfg, store, notifier, logger)
	srv := app.HTTPServer(":"+cfg.Port, logger)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 35 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	logger.Info("Starting TusGastos API",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"auth_skip", cfg.AuthSkip,
		"timezone", cfg.Timezone)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	<-done
	logger.Info("Server stopped gracefully")
}
