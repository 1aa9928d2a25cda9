package config

import (
	"fmt"
	"time"
)

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	Type       string
	SQLitePath string
	MySQLDSN   string
	Redis      RedisConfig
	Keys       StorageKeys
}

// RedisConfig configures the Redis backend
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

// StorageKeys are the keys persisted state lives under
type StorageKeys struct {
	Addresses         string
	MaxSize           string
	FreqTable         string
	NotificationLevel string
	MaxRecipients     string
}

// PreferencesConfig holds the defaults of the stored user preferences
type PreferencesConfig struct {
	MaxSize           int
	MaxRecipients     int
	NotificationLevel string
}

// DeductionConfig tunes the controllers
type DeductionConfig struct {
	Debounce         time.Duration
	MaxProbeAttempts int
	ProbeDelay       time.Duration
	MaxApplyAttempts int
	ApplyRetryDelay  time.Duration
	OnLoad           bool
}

// HeuristicConfig tunes the domain heuristic
type HeuristicConfig struct {
	SuffixFallback bool
	IgnoredDomains []string
}

// GetStorage returns the storage configuration
func (c *Config) GetStorage() StorageConfig {
	return StorageConfig{
		Type:       c.GetString("storage.type"),
		SQLitePath: c.GetString("storage.sqlite_path"),
		MySQLDSN:   c.GetString("storage.mysql_dsn"),
		Redis: RedisConfig{
			Address:  c.GetString("storage.redis.address"),
			Password: c.GetString("storage.redis.password"),
			DB:       c.GetInt("storage.redis.db"),
			Prefix:   c.GetString("storage.redis.prefix"),
		},
		Keys: StorageKeys{
			Addresses:         c.GetString("storage.keys.addresses"),
			MaxSize:           c.GetString("storage.keys.max_size"),
			FreqTable:         c.GetString("storage.keys.freq_table"),
			NotificationLevel: c.GetString("storage.keys.notification_level"),
			MaxRecipients:     c.GetString("storage.keys.max_recipients"),
		},
	}
}

// GetPreferences returns the preference defaults
func (c *Config) GetPreferences() PreferencesConfig {
	return PreferencesConfig{
		MaxSize:           c.GetInt("preferences.max_size"),
		MaxRecipients:     c.GetInt("preferences.max_recipients"),
		NotificationLevel: c.GetString("preferences.notification_level"),
	}
}

// GetDeduction returns the deduction configuration
func (c *Config) GetDeduction() (DeductionConfig, error) {
	debounce, err := c.GetDuration("deduction.debounce")
	if err != nil {
		return DeductionConfig{}, err
	}
	probeDelay, err := c.GetDuration("deduction.probe_delay")
	if err != nil {
		return DeductionConfig{}, err
	}
	applyDelay, err := c.GetDuration("deduction.apply_retry_delay")
	if err != nil {
		return DeductionConfig{}, err
	}

	cfg := DeductionConfig{
		Debounce:         debounce,
		MaxProbeAttempts: c.GetInt("deduction.max_probe_attempts"),
		ProbeDelay:       probeDelay,
		MaxApplyAttempts: c.GetInt("deduction.max_apply_attempts"),
		ApplyRetryDelay:  applyDelay,
		OnLoad:           c.GetBool("deduction.on_load"),
	}
	if cfg.MaxProbeAttempts < 0 || cfg.MaxApplyAttempts < 1 {
		return DeductionConfig{}, fmt.Errorf("invalid deduction attempts: probe=%d apply=%d",
			cfg.MaxProbeAttempts, cfg.MaxApplyAttempts)
	}
	return cfg, nil
}

// GetHeuristic returns the heuristic configuration
func (c *Config) GetHeuristic() HeuristicConfig {
	return HeuristicConfig{
		SuffixFallback: c.GetBool("heuristic.suffix_fallback"),
		IgnoredDomains: c.GetStringSlice("heuristic.ignored_domains"),
	}
}

// GetLocale returns the user interface locale
func (c *Config) GetLocale() string {
	return c.GetString("ui.locale")
}
