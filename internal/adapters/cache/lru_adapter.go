package cache

import (
	"context"
	"path"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hemoglovida/dashboard/backend/internal/domain/providers"
)

type lruEntry struct {
	value     []byte
	expiresAt time.Time
}

// LRUAdapter is the in-process CacheProvider used when Redis is disabled
type LRUAdapter struct {
	cache *lru.Cache[string, lruEntry]
	mu    sync.Mutex
	now   func() time.Time
}

// NewLRUAdapter creates a bounded in-memory cache
func NewLRUAdapter(size int) (*LRUAdapter, error) {
	c, err := lru.New[string, lruEntry](size)
	if err != nil {
		return nil, err
	}
	return &LRUAdapter{cache: c, now: time.Now}, nil
}

// Get retrieves a value; expired entries are evicted on read
func (a *LRUAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.cache.Get(key)
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && !a.now().Before(entry.expiresAt) {
		a.cache.Remove(key)
		return nil, providers.ErrCacheMiss
	}
	return entry.value, nil
}

// Set stores a value; zero expiration keeps it until evicted
func (a *LRUAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry := lruEntry{value: value}
	if expirationSeconds > 0 {
		entry.expiresAt = a.now().Add(time.Duration(expirationSeconds) * time.Second)
	}
	a.cache.Add(key, entry)
	return nil
}

// Delete removes a value from cache
func (a *LRUAdapter) Delete(ctx context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cache.Remove(key)
	return nil
}

// Exists checks if a live key exists in cache
func (a *LRUAdapter) Exists(ctx context.Context, key string) (bool, error) {
	_, err := a.Get(ctx, key)
	return err == nil, nil
}

// DeletePattern removes keys matching a glob pattern
func (a *LRUAdapter) DeletePattern(ctx context.Context, pattern string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, key := range a.cache.Keys() {
		if ok, _ := path.Match(pattern, key); ok {
			a.cache.Remove(key)
		}
	}
	return nil
}
