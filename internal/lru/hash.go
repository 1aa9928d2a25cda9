// Package lru persists recipient language choices in a bounded
// least-recently-used map.
package lru

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/mikey/auto-dictionary/internal/core"
)

// Pair is one key with its languages
type Pair struct {
	Key       string
	Languages core.LanguageSet
}

// Hash is an in-memory LRU map from recipient keys to languages
type Hash struct {
	cache   *simplelru.LRU[string, core.LanguageSet]
	maxSize int
}

type hashOptions struct {
	SortedKeys []string `json:"sorted_keys"`
	MaxSize    int      `json:"max_size,omitempty"`
}

type hashDocument struct {
	Hash    map[string]json.RawMessage `json:"hash"`
	Options *hashOptions               `json:"options,omitempty"`
}

// NewHash creates an empty map holding at most maxSize keys
func NewHash(maxSize int) (*Hash, error) {
	// no eviction callback: simplelru also calls it on Remove
	cache, err := simplelru.NewLRU[string, core.LanguageSet](maxSize, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru of size %d: %w", maxSize, err)
	}
	return &Hash{cache: cache, maxSize: maxSize}, nil
}

// Get returns the languages for key and marks it most recently used
func (h *Hash) Get(key string) (core.LanguageSet, bool) {
	languages, ok := h.cache.Get(key)
	if !ok {
		return nil, false
	}
	return languages.Clone(), true
}

// Set stores the languages as most recently used. When a new key pushes the
// map over capacity, the evicted oldest pair is returned.
func (h *Hash) Set(key string, languages core.LanguageSet) *Pair {
	var evicted *Pair
	if !h.cache.Contains(key) && h.cache.Len() >= h.maxSize {
		if oldestKey, oldest, ok := h.cache.GetOldest(); ok {
			evicted = &Pair{Key: oldestKey, Languages: oldest}
		}
	}
	h.cache.Add(key, languages.Clone())
	return evicted
}

// Remove deletes key; it is not reported as an eviction
func (h *Hash) Remove(key string) bool {
	return h.cache.Remove(key)
}

// Keys lists the keys from oldest to newest
func (h *Hash) Keys() []string {
	return h.cache.Keys()
}

// Pairs lists the entries from oldest to newest
func (h *Hash) Pairs() []Pair {
	keys := h.cache.Keys()
	out := make([]Pair, 0, len(keys))
	for _, key := range keys {
		languages, _ := h.cache.Peek(key)
		out = append(out, Pair{Key: key, Languages: languages.Clone()})
	}
	return out
}

// Len returns the number of keys
func (h *Hash) Len() int {
	return h.cache.Len()
}

// MaxSize returns the capacity
func (h *Hash) MaxSize() int {
	return h.maxSize
}

// Resize changes the capacity and returns the pairs dropped to fit, oldest first
func (h *Hash) Resize(maxSize int) ([]Pair, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("invalid lru size: %d", maxSize)
	}
	var evicted []Pair
	for h.cache.Len() > maxSize {
		key, languages, ok := h.cache.RemoveOldest()
		if !ok {
			break
		}
		evicted = append(evicted, Pair{Key: key, Languages: languages})
	}
	h.cache.Resize(maxSize)
	h.maxSize = maxSize
	return evicted, nil
}

// Serialize encodes the map with its recency order
func (h *Hash) Serialize() (string, error) {
	doc := struct {
		Hash    map[string]core.LanguageSet `json:"hash"`
		Options hashOptions                 `json:"options"`
	}{
		Hash: make(map[string]core.LanguageSet, h.cache.Len()),
		Options: hashOptions{
			SortedKeys: h.cache.Keys(),
			MaxSize:    h.maxSize,
		},
	}
	for _, pair := range h.Pairs() {
		doc.Hash[pair.Key] = pair.Languages
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode lru: %w", err)
	}
	return string(data), nil
}

// LoadHash decodes a serialized map and fits it to maxSize. Older formats
// are migrated: a single language string becomes a one-element set, an
// empty string an empty set. Listed keys without a value are dropped and
// unlisted keys are placed at the oldest end in lexical order. The pairs
// trimmed to fit are returned, and migrated tells whether the stored value
// should be rewritten.
func LoadHash(raw string, maxSize int) (h *Hash, evicted []Pair, migrated bool, err error) {
	var doc hashDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, nil, false, fmt.Errorf("failed to decode lru: %w", err)
	}

	values := make(map[string]core.LanguageSet, len(doc.Hash))
	for key, rawValue := range doc.Hash {
		languages, legacy, ok := decodeLanguages(rawValue)
		if !ok {
			migrated = true
			continue
		}
		if legacy {
			migrated = true
		}
		values[key] = languages
	}

	var sortedKeys []string
	if doc.Options == nil {
		migrated = true
	} else {
		sortedKeys = doc.Options.SortedKeys
		if doc.Options.MaxSize != maxSize {
			migrated = true
		}
	}

	order := make([]string, 0, len(values))
	listed := make(map[string]bool, len(sortedKeys))
	for _, key := range sortedKeys {
		if _, ok := values[key]; !ok || listed[key] {
			migrated = true
			continue
		}
		listed[key] = true
		order = append(order, key)
	}
	var unlisted []string
	for key := range values {
		if !listed[key] {
			unlisted = append(unlisted, key)
		}
	}
	if len(unlisted) > 0 {
		migrated = true
		sort.Strings(unlisted)
		order = append(unlisted, order...)
	}

	if trim := len(order) - maxSize; trim > 0 {
		migrated = true
		for _, key := range order[:trim] {
			evicted = append(evicted, Pair{Key: key, Languages: values[key]})
		}
		order = order[trim:]
	}

	h, err = NewHash(maxSize)
	if err != nil {
		return nil, nil, false, err
	}
	for _, key := range order {
		h.cache.Add(key, values[key])
	}
	return h, evicted, migrated, nil
}

// decodeLanguages reads a language array, or a legacy single string
func decodeLanguages(raw json.RawMessage) (languages core.LanguageSet, legacy bool, ok bool) {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return core.LanguageSet(list).Clone(), false, true
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return core.LanguageSet{}, true, true
		}
		return core.LanguageSet{single}, true, true
	}
	return nil, false, false
}
