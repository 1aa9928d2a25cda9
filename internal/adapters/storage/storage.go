// Package storage provides the key-value backends behind persisted state.
package storage

import (
	"context"
	"errors"

	"github.com/mikey/auto-dictionary/internal/core"
)

// ErrUnknownType is returned for an unsupported storage type
var ErrUnknownType = errors.New("unknown storage type")

// Backend is a Storage that can also enumerate, delete and be closed
type Backend interface {
	core.Storage

	// Delete removes a key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// Keys lists every stored key
	Keys(ctx context.Context) ([]string, error)

	// Close releases the backend
	Close() error
}

var (
	_ Backend = (*MemoryStorage)(nil)
	_ Backend = (*SQLiteStorage)(nil)
	_ Backend = (*MySQLStorage)(nil)
	_ Backend = (*RedisStorage)(nil)
)
