package factory

import (
	"context"
	"fmt"

	"github.com/mikey/auto-dictionary/internal/adapters/storage"
	"github.com/mikey/auto-dictionary/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StorageFactory creates storage backends based on configuration
type StorageFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config, logger *zap.Logger) *StorageFactory {
	return &StorageFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStorage creates the backend selected by storage.type
func (f *StorageFactory) CreateStorage(ctx context.Context) (storage.Backend, error) {
	storageCfg := f.cfg.GetStorage()
	logger := f.logger.Named("storage").With(zap.String("type", storageCfg.Type))

	switch storageCfg.Type {
	case "memory":
		return storage.NewMemoryStorage(logger), nil
	case "sqlite":
		return storage.NewSQLiteStorage(storageCfg.SQLitePath, logger)
	case "mysql":
		return storage.NewMySQLStorage(ctx, storageCfg.MySQLDSN, logger)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     storageCfg.Redis.Address,
			Password: storageCfg.Redis.Password,
			DB:       storageCfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return storage.NewRedisStorage(client, storageCfg.Redis.Prefix, logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", storage.ErrUnknownType, storageCfg.Type)
	}
}
