package lru

import (
	"context"
	"slices"
	"sync"

	"github.com/mikey/auto-dictionary/internal/core"
	"github.com/mikey/auto-dictionary/internal/persistent"
	"go.uber.org/zap"
)

// EvictionHandler is called with each pair pushed out of the store
type EvictionHandler func(ctx context.Context, pair Pair)

// Store is the persisted recipient cache shared by every controller.
// It implements core.LanguageStore.
type Store struct {
	obj     *persistent.Object[*Hash]
	maxSize int
	logger  *zap.Logger

	mu       sync.Mutex
	handlers map[int]EvictionHandler
	nextID   int
	pending  []Pair
}

var _ core.LanguageStore = (*Store)(nil)

// NewStore creates a store persisted under key, holding at most maxSize keys
func NewStore(storage core.Storage, key string, maxSize int, logger *zap.Logger) *Store {
	s := &Store{
		maxSize:  maxSize,
		logger:   logger.Named("lru"),
		handlers: make(map[int]EvictionHandler),
	}
	s.obj = persistent.New(storage, key, s.load, s.empty, s.logger)
	return s
}

func (s *Store) load(_ context.Context, raw string) (*Hash, bool, error) {
	h, evicted, migrated, err := LoadHash(raw, s.maxSize)
	if err != nil {
		return nil, false, err
	}
	if len(evicted) > 0 {
		s.logger.Info("Trimmed stored recipients to capacity",
			zap.Int("evicted", len(evicted)),
			zap.Int("max_size", s.maxSize))
		s.queue(evicted...)
	}
	return h, migrated, nil
}

func (s *Store) empty(context.Context) (*Hash, error) {
	return NewHash(s.maxSize)
}

// Get returns the languages for key and marks it recently used
func (s *Store) Get(ctx context.Context, key string) (core.LanguageSet, bool, error) {
	var (
		languages core.LanguageSet
		ok        bool
	)
	err := s.obj.Read(ctx, func(h *Hash) error {
		languages, ok = h.Get(key)
		return nil
	})
	s.flush(ctx)
	return languages, ok, err
}

// Set stores the languages and persists the cache. Eviction handlers run
// after the write reached storage.
func (s *Store) Set(ctx context.Context, key string, languages core.LanguageSet) error {
	err := s.obj.Write(ctx, func(h *Hash) error {
		if evicted := h.Set(key, languages); evicted != nil {
			s.queue(*evicted)
		}
		return nil
	})
	s.settle(ctx, err)
	return err
}

// Remove deletes key without calling eviction handlers
func (s *Store) Remove(ctx context.Context, key string) (bool, error) {
	var removed bool
	err := s.obj.Write(ctx, func(h *Hash) error {
		removed = h.Remove(key)
		return nil
	})
	s.settle(ctx, err)
	return removed, err
}

// Resize changes the capacity; the pairs dropped to fit are reported as evictions
func (s *Store) Resize(ctx context.Context, maxSize int) error {
	err := s.obj.Write(ctx, func(h *Hash) error {
		evicted, err := h.Resize(maxSize)
		if err != nil {
			return err
		}
		s.queue(evicted...)
		return nil
	})
	if err == nil {
		s.mu.Lock()
		s.maxSize = maxSize
		s.mu.Unlock()
	}
	s.settle(ctx, err)
	return err
}

// Snapshot lists the entries from oldest to newest without touching recency
func (s *Store) Snapshot(ctx context.Context) ([]Pair, error) {
	var pairs []Pair
	err := s.obj.Read(ctx, func(h *Hash) error {
		pairs = h.Pairs()
		return nil
	})
	s.flush(ctx)
	return pairs, err
}

// MaxSize returns the capacity
func (s *Store) MaxSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxSize
}

// OnEvict registers an eviction handler and returns its unregister function
func (s *Store) OnEvict(handler EvictionHandler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.handlers[id] = handler
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.handlers, id)
	}
}

func (s *Store) queue(pairs ...Pair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, pairs...)
}

// settle finishes a write. A failed write reloads the cache from storage and
// drops the evictions it queued, since storage still holds those pairs.
func (s *Store) settle(ctx context.Context, err error) {
	if err == nil {
		s.flush(ctx)
		return
	}
	s.mu.Lock()
	dropped := len(s.pending)
	s.pending = nil
	s.mu.Unlock()
	s.obj.Reset()
	s.logger.Warn("Failed to persist recipients, reloading from storage",
		zap.Int("dropped_evictions", dropped),
		zap.Error(err))
}

// flush hands queued evictions to the handlers in registration order
func (s *Store) flush(ctx context.Context) {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	ids := make([]int, 0, len(s.handlers))
	for id := range s.handlers {
		ids = append(ids, id)
	}
	handlers := make([]EvictionHandler, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		handlers = append(handlers, s.handlers[id])
	}
	s.mu.Unlock()

	for _, pair := range pending {
		s.logger.Debug("Evicted recipients", zap.String("key", pair.Key))
		for _, handler := range handlers {
			handler(ctx, pair)
		}
	}
}
