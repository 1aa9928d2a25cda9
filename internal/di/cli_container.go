package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/auto-dictionary/internal/config"
	"github.com/mikey/auto-dictionary/internal/logging"
)

// CLIFlags contains the persistent flags of the command line
type CLIFlags struct {
	ConfigFile  string
	StorageType string
	SQLitePath  string
	Locale      string
	Verbose     bool
	JSONLog     bool
}

// BuildCLIContainer creates a container for the command line. Flags that
// were set override the configuration file and environment.
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		cfg, err := config.New(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		if used := cfg.GetViper().ConfigFileUsed(); used != "" {
			logger.Info("Loaded configuration from file", zap.String("file", used))
		}
		applyFlags(cfg, flags)
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := provideServices(container); err != nil {
		return nil, err
	}
	return container, nil
}

func applyFlags(cfg *config.Config, flags *CLIFlags) {
	if flags.StorageType != "" {
		cfg.Set("storage.type", flags.StorageType)
	}
	if flags.SQLitePath != "" {
		cfg.Set("storage.sqlite_path", flags.SQLitePath)
	}
	if flags.Locale != "" {
		cfg.Set("ui.locale", flags.Locale)
	}
}
