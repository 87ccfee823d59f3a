package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/kizuna/pkg/domain/interfaces"
	"github.com/secmon-lab/kizuna/pkg/domain/types"
)

// Cache is an in-memory cache layer. Values are kept as encoded JSON so readers
// never share memory with the writer.
type Cache struct {
	mu      sync.RWMutex
	entries map[types.CacheKey][]byte
}

var _ interfaces.Cache = &Cache{}

func NewCache() *Cache {
	return &Cache{
		entries: make(map[types.CacheKey][]byte),
	}
}

func (c *Cache) Set(ctx context.Context, key types.CacheKey, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return goerr.Wrap(err, "failed to encode cache value", goerr.V("key", key))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = data
	return nil
}

func (c *Cache) Get(ctx context.Context, key types.CacheKey, dst any) (bool, error) {
	c.mu.RLock()
	data, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return true, goerr.Wrap(err, "failed to decode cache value", goerr.V("key", key))
	}
	return true, nil
}

func (c *Cache) ClearAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[types.CacheKey][]byte)
	return nil
}

// Keys returns all stored keys in lexical order
func (c *Cache) Keys() []types.CacheKey {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]types.CacheKey, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Len returns the number of stored entries
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
