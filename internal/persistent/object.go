// Package persistent keeps an in-memory structure in sync with a storage key.
package persistent

import (
	"context"
	"fmt"
	"sync"

	"github.com/mikey/auto-dictionary/internal/core"
	"go.uber.org/zap"
)

// Serializable is a structure that can be written back to storage
type Serializable interface {
	Serialize() (string, error)
}

// Loader decodes a stored value. The dirty flag asks for the migrated
// value to be written back right away.
type Loader[T Serializable] func(ctx context.Context, raw string) (value T, dirty bool, err error)

// Factory builds the empty value used when nothing valid is stored
type Factory[T Serializable] func(ctx context.Context) (T, error)

// Object lazily loads a value from one storage key and persists every write.
// Calls are serialized so a write is never interleaved with a load.
type Object[T Serializable] struct {
	storage core.Storage
	key     string
	load    Loader[T]
	empty   Factory[T]
	logger  *zap.Logger

	mu     sync.Mutex
	value  T
	loaded bool
}

// New creates an object bound to a storage key
func New[T Serializable](storage core.Storage, key string, load Loader[T], empty Factory[T], logger *zap.Logger) *Object[T] {
	return &Object[T]{
		storage: storage,
		key:     key,
		load:    load,
		empty:   empty,
		logger:  logger.With(zap.String("key", key)),
	}
}

// Read runs fn against the loaded value without persisting
func (o *Object[T]) Read(ctx context.Context, fn func(T) error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.ensureLoaded(ctx); err != nil {
		return err
	}
	return fn(o.value)
}

// Write runs fn against the loaded value and persists it before returning
func (o *Object[T]) Write(ctx context.Context, fn func(T) error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.ensureLoaded(ctx); err != nil {
		return err
	}
	if err := fn(o.value); err != nil {
		return err
	}
	return o.persist(ctx)
}

// Reset drops the in-memory value so the next access reloads from storage
func (o *Object[T]) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	var zero T
	o.value = zero
	o.loaded = false
}

func (o *Object[T]) ensureLoaded(ctx context.Context) error {
	if o.loaded {
		return nil
	}

	raw, ok, err := o.storage.Get(ctx, o.key)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", o.key, err)
	}

	if ok && raw != "" {
		value, dirty, err := o.load(ctx, raw)
		if err == nil {
			o.value = value
			o.loaded = true
			if dirty {
				o.logger.Info("Migrated stored value")
				// the next write persists the migrated value
				if err := o.persist(ctx); err != nil {
					o.logger.Warn("Failed to write back migrated value", zap.Error(err))
				}
			}
			return nil
		}
		o.logger.Warn("Stored value is corrupt, starting empty", zap.Error(err))
	}

	value, err := o.empty(ctx)
	if err != nil {
		return fmt.Errorf("failed to create empty %s: %w", o.key, err)
	}
	o.value = value
	o.loaded = true
	return nil
}

func (o *Object[T]) persist(ctx context.Context) error {
	raw, err := o.value.Serialize()
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", o.key, err)
	}
	if err := o.storage.Set(ctx, o.key, raw); err != nil {
		return fmt.Errorf("failed to write %s: %w", o.key, err)
	}
	return nil
}
