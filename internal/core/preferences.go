package core

import (
	"context"
	"fmt"

	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// PreferenceKeys are the storage keys holding user preferences
type PreferenceKeys struct {
	MaxSize           string
	MaxRecipients     string
	NotificationLevel string
}

// PreferenceDefaults apply when a preference is missing or invalid
type PreferenceDefaults struct {
	MaxSize           int
	MaxRecipients     int
	NotificationLevel NotificationLevel
}

// Preferences reads user preferences from the storage backend
type Preferences struct {
	storage  Storage
	keys     PreferenceKeys
	defaults PreferenceDefaults
	logger   *zap.Logger
}

// NewPreferences creates a preference reader
func NewPreferences(storage Storage, keys PreferenceKeys, defaults PreferenceDefaults, logger *zap.Logger) *Preferences {
	return &Preferences{
		storage:  storage,
		keys:     keys,
		defaults: defaults,
		logger:   logger,
	}
}

// MaxSize returns the capacity of the recipient cache
func (p *Preferences) MaxSize(ctx context.Context) int {
	return p.positiveInt(ctx, p.keys.MaxSize, p.defaults.MaxSize)
}

// MaxRecipients returns the TO count above which choices are not stored
func (p *Preferences) MaxRecipients(ctx context.Context) int {
	return p.positiveInt(ctx, p.keys.MaxRecipients, p.defaults.MaxRecipients)
}

// NotificationLevel returns the level used to filter labels
func (p *Preferences) NotificationLevel(ctx context.Context) NotificationLevel {
	raw, ok := p.read(ctx, p.keys.NotificationLevel)
	if !ok {
		return p.defaults.NotificationLevel
	}
	level, valid := ParseNotificationLevel(raw)
	if !valid {
		p.logger.Warn("Invalid notification level, using default",
			zap.String("value", raw),
			zap.String("default", string(p.defaults.NotificationLevel)))
		return p.defaults.NotificationLevel
	}
	return level
}

// Set stores a preference by name (max_size, max_recipients, notification_level)
func (p *Preferences) Set(ctx context.Context, name string, value string) error {
	key, err := p.Key(name)
	if err != nil {
		return err
	}
	switch name {
	case "notification_level":
		if _, ok := ParseNotificationLevel(value); !ok {
			return fmt.Errorf("invalid notification level: %s", value)
		}
	default:
		n, err := cast.ToIntE(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid value for %s: %s", name, value)
		}
	}
	if err := p.storage.Set(ctx, key, value); err != nil {
		return fmt.Errorf("failed to store preference %s: %w", name, err)
	}
	return nil
}

// Get returns the effective value of a preference by name
func (p *Preferences) Get(ctx context.Context, name string) (string, error) {
	switch name {
	case "max_size":
		return cast.ToString(p.MaxSize(ctx)), nil
	case "max_recipients":
		return cast.ToString(p.MaxRecipients(ctx)), nil
	case "notification_level":
		return string(p.NotificationLevel(ctx)), nil
	default:
		return "", fmt.Errorf("unknown preference: %s", name)
	}
}

// Key returns the storage key holding a preference
func (p *Preferences) Key(name string) (string, error) {
	switch name {
	case "max_size":
		return p.keys.MaxSize, nil
	case "max_recipients":
		return p.keys.MaxRecipients, nil
	case "notification_level":
		return p.keys.NotificationLevel, nil
	default:
		return "", fmt.Errorf("unknown preference: %s", name)
	}
}

func (p *Preferences) positiveInt(ctx context.Context, key string, fallback int) int {
	raw, ok := p.read(ctx, key)
	if !ok {
		return fallback
	}
	n, err := cast.ToIntE(raw)
	if err != nil || n <= 0 {
		p.logger.Warn("Invalid preference value, using default",
			zap.String("key", key),
			zap.String("value", raw),
			zap.Int("default", fallback))
		return fallback
	}
	return n
}

func (p *Preferences) read(ctx context.Context, key string) (string, bool) {
	raw, ok, err := p.storage.Get(ctx, key)
	if err != nil {
		p.logger.Error("Failed to read preference", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return raw, ok
}
