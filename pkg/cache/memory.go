package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is a process-local cache. Entries are not shared between instances.
type Memory struct {
	store *gocache.Cache
}

// NewMemory creates a memory cache whose entries expire after ttl, purging expired entries every 2*ttl.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{store: gocache.New(ttl, 2*ttl)}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string, dst interface{}) (bool, error) {
	raw, found := m.store.Get(key)
	if !found {
		return false, nil
	}
	if err := json.Unmarshal(raw.([]byte), dst); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// Set implements Cache. A zero ttl uses the cache default.
func (m *Memory) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.store.Set(key, raw, ttl)
	return nil
}

// Flush implements Cache.
func (m *Memory) Flush(_ context.Context) error {
	m.store.Flush()
	return nil
}

// Len returns the number of entries, expired ones included until the next purge.
func (m *Memory) Len() int {
	return m.store.ItemCount()
}
