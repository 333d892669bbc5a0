package cache

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
)

// Backend defines interface for a Backend
//
//go:generate mockery
type Backend[K ristretto.Key, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V) bool
	Del(key K)
}

// ristrettoCacheBackend is a RistrettoCache implemenentation of Backend
type ristrettoCacheBackend[K ristretto.Key, V any] struct {
	c *ristretto.Cache[K, V]
}

// Get a value from the cache
func (rcb *ristrettoCacheBackend[K, V]) Get(key K) (V, bool) { //nolint:ireturn
	return rcb.c.Get(key)
}

// Set a value in the cache. The write is visible to Get once Set returns.
func (rcb *ristrettoCacheBackend[K, V]) Set(key K, value V) bool {
	ok := rcb.c.Set(key, value, 1)
	rcb.c.Wait()
	return ok
}

// Del removes a value from the cache
func (rcb *ristrettoCacheBackend[K, V]) Del(key K) {
	rcb.c.Del(key)
}

// Close stops the background goroutines of the cache.
func (rcb *ristrettoCacheBackend[K, V]) Close() {
	rcb.c.Close()
}

// NewRistrettoCacheBackend construct an instance of a ristrettoCacheBackend holding at most maxItems values.
func NewRistrettoCacheBackend[K ristretto.Key, V any](maxItems int64) (*ristrettoCacheBackend[K, V], error) {
	if maxItems < 1 {
		maxItems = 1
	}
	cache, err := ristretto.NewCache(
		&ristretto.Config[K, V]{
			NumCounters:        maxItems * 10,
			MaxCost:            maxItems,
			BufferItems:        64,
			IgnoreInternalCost: true,
		})
	if err != nil {
		return nil, fmt.Errorf("error initialising ristretto cache: %w", err)
	}
	return &ristrettoCacheBackend[K, V]{c: cache}, nil
}

// Cache provides caching capabilities over a Backend
type Cache[K ristretto.Key, V any] struct {
	cacheBackend Backend[K, V]
}

// New constructs a new Cache
func New[K ristretto.Key, V any](backend Backend[K, V]) *Cache[K, V] {
	return &Cache[K, V]{
		cacheBackend: backend,
	}
}

// Get a value from the cache
func (c *Cache[K, V]) Get(key K) (V, bool) { //nolint:ireturn
	return c.cacheBackend.Get(key)
}

// Set a value in the cache
func (c *Cache[K, V]) Set(key K, value V) bool {
	return c.cacheBackend.Set(key, value)
}

// Del removes a value from the cache
func (c *Cache[K, V]) Del(key K) {
	c.cacheBackend.Del(key)
}

// Close releases the backend when it holds resources.
func (c *Cache[K, V]) Close() {
	if cl, ok := c.cacheBackend.(interface{ Close() }); ok {
		cl.Close()
	}
}

// Cacheable makes a function cacheable by the given key
//
//nolint:ireturn
func Cacheable[K ristretto.Key, V any](key K, fn func() (V, error), c *Cache[K, V]) (V, error) {
	var val V
	tmpVal, cacheHit := c.cacheBackend.Get(key)
	if !cacheHit {
		retrievedVal, err := fn()
		if err != nil {
			return val, fmt.Errorf("error retrieving cacheable value for key %v: %w", key, err)
		}
		c.cacheBackend.Set(key, retrievedVal)
		val = retrievedVal
	} else {
		val = tmpVal
	}
	return val, nil
}
