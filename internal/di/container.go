package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/auto-dictionary/internal/adapters/storage"
	"github.com/mikey/auto-dictionary/internal/config"
	"github.com/mikey/auto-dictionary/internal/core"
	"github.com/mikey/auto-dictionary/internal/factory"
	"github.com/mikey/auto-dictionary/internal/logging"
	"github.com/mikey/auto-dictionary/internal/utils"
)

// BuildContainer creates a container configured from the default config locations
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() (*config.Config, error) {
		return config.New("")
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideServices(container); err != nil {
		return nil, err
	}
	return container, nil
}

// provideServices registers everything built on top of config and logger
func provideServices(container *dig.Container) error {
	// Register factories
	if err := container.Provide(factory.NewStorageFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewWindowFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewAddressProcessorFactory); err != nil {
		return err
	}

	// Register storage backend, also exposed as the core port
	if err := container.Provide(func(f *factory.StorageFactory) (storage.Backend, error) {
		return f.CreateStorage(context.Background())
	}); err != nil {
		return err
	}
	if err := container.Provide(func(b storage.Backend) core.Storage {
		return b
	}); err != nil {
		return err
	}

	// Register preferences
	if err := container.Provide(factory.NewPreferences); err != nil {
		return err
	}

	// Register shared deduction state, one per container
	if err := container.Provide(factory.NewDeductionFactory); err != nil {
		return err
	}

	// Register address processor
	if err := container.Provide(func(f *factory.AddressProcessorFactory) *utils.AddressProcessor {
		return f.CreateAddressProcessor()
	}); err != nil {
		return err
	}

	return nil
}

// Close shuts down every controller and closes the storage backend
func Close(ctx context.Context, container *dig.Container) error {
	return container.Invoke(func(f *factory.DeductionFactory, b storage.Backend, logger *zap.Logger) error {
		if err := f.Manager().ShutdownAll(ctx); err != nil {
			logger.Warn("Errors while shutting down controllers", zap.Error(err))
		}
		return b.Close()
	})
}
