package locations

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"avaliar/appraisal-backend/internal/valuation"
)

// NeighborCache provides in-memory caching for neighbor lists
type NeighborCache struct {
	data    map[string]*cacheEntry
	ttl     time.Duration
	mu      sync.RWMutex
	cleanup *time.Ticker
	done    chan struct{}
	once    sync.Once
}

// cacheEntry represents a cache entry with expiration
type cacheEntry struct {
	neighbors  []string
	expiration time.Time
}

// NewNeighborCache creates a cache and starts its cleanup goroutine. Call
// Stop to release it.
func NewNeighborCache(ttl time.Duration) *NeighborCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	cleanupEvery := time.Minute
	if ttl < cleanupEvery {
		cleanupEvery = ttl
	}
	cache := &NeighborCache{
		data:    make(map[string]*cacheEntry),
		ttl:     ttl,
		cleanup: time.NewTicker(cleanupEvery),
		done:    make(chan struct{}),
	}

	go cache.cleanupLoop()

	return cache
}

// Get retrieves a neighbor list from the cache
func (c *NeighborCache) Get(key string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[key]
	if !ok || time.Now().After(entry.expiration) {
		return nil, false
	}

	out := make([]string, len(entry.neighbors))
	copy(out, entry.neighbors)
	return out, true
}

// Set stores a neighbor list in the cache
func (c *NeighborCache) Set(key string, neighbors []string) {
	stored := make([]string, len(neighbors))
	copy(stored, neighbors)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = &cacheEntry{
		neighbors:  stored,
		expiration: time.Now().Add(c.ttl),
	}
}

// Stop stops the cleanup goroutine
func (c *NeighborCache) Stop() {
	c.once.Do(func() {
		c.cleanup.Stop()
		close(c.done)
	})
}

// cleanupLoop periodically removes expired entries
func (c *NeighborCache) cleanupLoop() {
	for {
		select {
		case <-c.cleanup.C:
			c.removeExpired()
		case <-c.done:
			return
		}
	}
}

// removeExpired removes expired entries
func (c *NeighborCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.data {
		if now.After(entry.expiration) {
			delete(c.data, key)
		}
	}
}

// defaultLookupTimeout bounds a shared lookup once it is detached from the
// caller that started it
const defaultLookupTimeout = 30 * time.Second

// CachedResolver memoizes successful lookups of another resolver. Failures
// are never cached, and concurrent lookups of the same city share one call.
type CachedResolver struct {
	next    valuation.NeighborResolver
	cache   *NeighborCache
	group   singleflight.Group
	timeout time.Duration
	logger  *zap.Logger
}

// NewCachedResolver wraps next with a cache of the given TTL
func NewCachedResolver(next valuation.NeighborResolver, ttl time.Duration, logger *zap.Logger) *CachedResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedResolver{
		next:    next,
		cache:   NewNeighborCache(ttl),
		timeout: defaultLookupTimeout,
		logger:  logger,
	}
}

// NeighboringLocations serves from cache or delegates and caches the result.
// The shared lookup runs detached from any single caller; each caller still
// gives up when its own context ends.
func (r *CachedResolver) NeighboringLocations(ctx context.Context, city, state string) ([]string, error) {
	key := cacheKey(city, state)
	if neighbors, ok := r.cache.Get(key); ok {
		return neighbors, nil
	}

	ch := r.group.DoChan(key, func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		neighbors, err := r.next.NeighboringLocations(lookupCtx, city, state)
		if err != nil {
			return nil, err
		}
		r.cache.Set(key, neighbors)
		return neighbors, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	if res.Shared {
		r.logger.Debug("Shared neighbor lookup", zap.String("key", key))
	}

	neighbors := res.Val.([]string)
	out := make([]string, len(neighbors))
	copy(out, neighbors)
	return out, nil
}

// Stop releases the cache cleanup goroutine
func (r *CachedResolver) Stop() {
	r.cache.Stop()
}

func cacheKey(city, state string) string {
	return strings.ToUpper(strings.TrimSpace(state)) + "|" + strings.ToLower(strings.TrimSpace(city))
}
