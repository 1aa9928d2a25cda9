package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStorage keeps values in Redis under a key prefix
type RedisStorage struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisStorage creates a storage over an existing client
func NewRedisStorage(client *redis.Client, prefix string, logger *zap.Logger) *RedisStorage {
	return &RedisStorage{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

// Get retrieves a raw value
func (s *RedisStorage) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get value: %w", err)
	}
	return value, true, nil
}

// Set stores a raw value without expiry
func (s *RedisStorage) Set(ctx context.Context, key string, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to store value: %w", err)
	}
	s.logger.Debug("Stored value", zap.String("key", key), zap.Int("size", len(value)))
	return nil
}

// Delete removes a value
func (s *RedisStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete value: %w", err)
	}
	return nil
}

// Keys lists the stored keys without their prefix, in lexical order
func (s *RedisStorage) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan keys: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close closes the client
func (s *RedisStorage) Close() error {
	return s.client.Close()
}
