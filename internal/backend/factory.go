package backend

import (
	"context"
	"fmt"
	"log/slog"

	"fanrevenue/internal/dynamo"
	"fanrevenue/internal/memory"
	"fanrevenue/internal/storage"
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
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case DynamoBackend:
		return f.createDynamoBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	sqliteRepo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Repository: sqliteRepo,
		Cleanup:    sqliteRepo.Close,
	}, nil
}

func (f *DefaultFactory) createDynamoBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := dynamo.NewFromRegion(ctx, config.AWSRegion, config.DynamoTable)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize DynamoDB repository: %w", err)
	}

	f.logger.Info("Initialized DynamoDB backend",
		"table", config.DynamoTable,
		"region", config.AWSRegion)

	return &BackendResult{Repository: repo}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	store := memory.NewFromDir(dataDir)

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)

	return &BackendResult{Repository: store}, nil
}
