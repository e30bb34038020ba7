// Package cli holds the startup steps shared by cmd/tusgastos,
// cmd/tusgastos-worker and cmd/tusgastosctl.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/IvaDonGon/TusGastos/internal/amqp"
	"github.com/IvaDonGon/TusGastos/internal/backend"
	"github.com/IvaDonGon/TusGastos/internal/config"
	applog "github.com/IvaDonGon/TusGastos/internal/log"
	"github.com/IvaDonGon/TusGastos/internal/ports"
	"github.com/IvaDonGon/TusGastos/internal/services"
)

// SetupLogger builds the logger described by cfg and installs it as the
// slog default. Close the returned logger on exit to flush the log file.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	logger := applog.NewFromOptions(applog.Options{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		File:      cfg.LogFile,
		Component: component,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile(paths ...string) {
	_ = godotenv.Load(paths...)
}

// LoadAndValidateConfig loads configuration from path (or CONFIG_FILE when
// empty) and validates it.
func LoadAndValidateConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenBackend opens the store selected by DATA_BACKEND.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *applog.Logger) (ports.Store, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).Open(ctx, bcfg)
}

// OpenNotifier connects to AMQP when AMQP_URL is set. Without it events are
// dropped. The returned close func is never nil.
func OpenNotifier(cfg *config.Config, logger *applog.Logger) (services.Notifier, func(), error) {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled, events will not be published")
		return services.NopNotifier{}, func() {}, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return nil, nil, fmt.Errorf("connect amqp: %w", err)
	}
	logger.Info("AMQP publisher ready",
		applog.FieldComponent, applog.ComponentAMQP,
		"exchange", cfg.AMQPExchange)
	return client, func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", applog.FieldError, err)
		}
	}, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. cleanup
// runs once with a context bounded by timeout; done closes after it returns.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}
