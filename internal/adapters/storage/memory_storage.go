package storage

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// MemoryStorage is an in-memory implementation of the Storage interface
type MemoryStorage struct {
	entries map[string]string
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewMemoryStorage creates a new in-memory storage
func NewMemoryStorage(logger *zap.Logger) *MemoryStorage {
	return &MemoryStorage{
		entries: make(map[string]string),
		logger:  logger,
	}
}

// Get retrieves a raw value
func (s *MemoryStorage) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.entries[key]
	return value, ok, nil
}

// Set stores a raw value
func (s *MemoryStorage) Set(ctx context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = value
	s.logger.Debug("Stored value", zap.String("key", key), zap.Int("size", len(value)))
	return nil
}

// Delete removes a value
func (s *MemoryStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// Keys lists the stored keys in lexical order
func (s *MemoryStorage) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op
func (s *MemoryStorage) Close() error {
	return nil
}
