package geoproc

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheLayers is the number of decoded layers a LayerCache keeps when
// no size is given.
const DefaultCacheLayers = 64

// LayerCache keeps decoded layers in memory with an LRU eviction policy.
//
// The selection pipeline tests every point file against every river file;
// the cache lets each river file be decoded once instead of once per point
// file. Cached layers are shared between callers and must not be modified.
//
// Example:
//
//	cache := geoproc.NewLayerCache(128)
//	river, err := cache.Get(path, func() (*geoproc.Layer, error) {
//	    return codec.Read(path)
//	})
type LayerCache struct {
	layers *lru.Cache[string, *Layer]

	mu       sync.Mutex
	loading  map[string]*pendingLoad
	hits     int64
	misses   int64
	evicted  int64
	failures int64
}

// pendingLoad lets concurrent callers for the same key wait on one loader.
type pendingLoad struct {
	done  chan struct{}
	layer *Layer
	err   error
}

// CacheStats reports cache activity.
type CacheStats struct {
	Layers   int   // Layers currently cached
	Hits     int64 // Lookups served from the cache
	Misses   int64 // Lookups that ran the loader
	Evicted  int64 // Layers dropped by eviction or Remove
	Failures int64 // Loader calls that returned an error
}

// NewLayerCache creates a cache holding up to size layers. A size below 1
// uses DefaultCacheLayers.
func NewLayerCache(size int) *LayerCache {
	if size < 1 {
		size = DefaultCacheLayers
	}
	c := &LayerCache{loading: make(map[string]*pendingLoad)}
	c.layers, _ = lru.NewWithEvict[string, *Layer](size, func(string, *Layer) {
		c.evicted++
	})
	return c
}

// Get returns the cached layer for key or loads it with loader on a miss.
//
// Concurrent calls for the same missing key run the loader once and share
// its result. Loader errors are returned to every waiting caller and are
// not cached, so a later Get retries.
func (c *LayerCache) Get(key string, loader func() (*Layer, error)) (*Layer, error) {
	c.mu.Lock()
	if layer, ok := c.layers.Get(key); ok {
		c.hits++
		c.mu.Unlock()
		return layer, nil
	}
	if p, ok := c.loading[key]; ok {
		c.hits++
		c.mu.Unlock()
		<-p.done
		return p.layer, p.err
	}

	p := &pendingLoad{done: make(chan struct{})}
	c.loading[key] = p
	c.misses++
	c.mu.Unlock()

	p.layer, p.err = loader()
	if p.err != nil {
		p.err = fmt.Errorf("load layer: %w", p.err)
	}

	c.mu.Lock()
	delete(c.loading, key)
	if p.err != nil {
		c.failures++
	} else {
		c.layers.Add(key, p.layer)
	}
	c.mu.Unlock()
	close(p.done)

	return p.layer, p.err
}

// Remove drops a layer from the cache.
func (c *LayerCache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.layers.Remove(key)
}

// Purge drops every cached layer and resets the counters.
func (c *LayerCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.layers.Purge()
	c.hits, c.misses, c.evicted, c.failures = 0, 0, 0, 0
}

// Stats returns a snapshot of cache activity.
func (c *LayerCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Layers:   c.layers.Len(),
		Hits:     c.hits,
		Misses:   c.misses,
		Evicted:  c.evicted,
		Failures: c.failures,
	}
}
