package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IvaDonGon/TusGastos/internal/memory"
	"github.com/IvaDonGon/TusGastos/internal/ports"
	"github.com/IvaDonGon/TusGastos/internal/postgres"
	"github.com/IvaDonGon/TusGastos/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// Open implements Factory.Open
func (f *DefaultFactory) Open(ctx context.Context, config Config) (ports.Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.openSQLite(config)
	case PostgresBackend:
		return f.openPostgres(ctx, config)
	case MemoryBackend:
		return f.openMemory(config), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) openSQLite(config Config) (ports.Store, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return repo, nil
}

func (f *DefaultFactory) openPostgres(ctx context.Context, config Config) (ports.Store, error) {
	db, err := postgres.Open(ctx, postgres.Config{
		DSN:             config.PostgresDSN,
		MaxOpenConns:    config.PostgresMaxOpenConns,
		MaxIdleConns:    config.PostgresMaxIdleConns,
		ConnMaxLifetime: config.PostgresConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL repository: %w", err)
	}
	f.logger.Info("Initialized PostgreSQL backend",
		"max_open_conns", config.PostgresMaxOpenConns,
		"max_idle_conns", config.PostgresMaxIdleConns)
	return postgres.NewRepository(db), nil
}

func (f *DefaultFactory) openMemory(config Config) ports.Store {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	store := memory.NewFromFiles(dataDir, config.SeedUserID)
	f.logger.Info("Initialized memory backend", "data_dir", dataDir, "seed_user", config.SeedUserID)
	return store
}
