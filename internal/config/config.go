package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance. An empty configFile searches the
// default locations; a missing file there is not an error.
func New(configFile string) (*Config, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/auto-dictionary/")
		v.AddConfigPath("$HOME/.auto-dictionary")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("AUTO_DICTIONARY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	// Storage
	v.SetDefault("storage.type", "sqlite")
	v.SetDefault("storage.sqlite_path", "./data/auto_dictionary.db")
	v.SetDefault("storage.mysql_dsn", "user:password@tcp(localhost:3306)/auto_dictionary")
	v.SetDefault("storage.redis.address", "localhost:6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.prefix", "auto-dictionary:")

	// Storage keys, stable across versions
	v.SetDefault("storage.keys.addresses", "addressesInfo")
	v.SetDefault("storage.keys.max_size", "addressesInfo.maxSize")
	v.SetDefault("storage.keys.freq_table", "freqTableData")
	v.SetDefault("storage.keys.notification_level", "notificationLevel")
	v.SetDefault("storage.keys.max_recipients", "maxRecipients")

	// Defaults of the stored preferences
	v.SetDefault("preferences.max_size", 1200)
	v.SetDefault("preferences.max_recipients", 10)
	v.SetDefault("preferences.notification_level", "info")

	// Deduction
	v.SetDefault("deduction.debounce", "1500ms")
	v.SetDefault("deduction.max_probe_attempts", 10)
	v.SetDefault("deduction.probe_delay", "1s")
	v.SetDefault("deduction.max_apply_attempts", 3)
	v.SetDefault("deduction.apply_retry_delay", "50ms")
	v.SetDefault("deduction.on_load", true)

	// Heuristic
	v.SetDefault("heuristic.suffix_fallback", true)
	v.SetDefault("heuristic.ignored_domains", []string{})

	v.SetDefault("ui.locale", "en")

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(c.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// Set overrides a value, used for command line flags
func (c *Config) Set(key string, value any) {
	c.v.Set(key, value)
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
