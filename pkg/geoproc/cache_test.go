package geoproc

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestCacheBasic(t *testing.T) {
	cache := NewLayerCache(4)

	// Test empty cache
	if stats := cache.Stats(); stats.Layers != 0 {
		t.Errorf("Expected empty cache, got %d layers", stats.Layers)
	}

	// Test cache miss and load
	loadCount := 0
	layer, err := cache.Get("rivers", func() (*Layer, error) {
		loadCount++
		return NewLayer("rivers"), nil
	})
	if err != nil {
		t.Fatalf("Failed to load layer: %v", err)
	}
	if layer.Name != "rivers" {
		t.Errorf("Expected layer name 'rivers', got '%s'", layer.Name)
	}

	// Test cache hit
	layer2, err := cache.Get("rivers", func() (*Layer, error) {
		loadCount++
		return NewLayer("other"), nil
	})
	if err != nil {
		t.Fatalf("Failed to get cached layer: %v", err)
	}
	if layer2 != layer {
		t.Error("Expected the cached layer to be returned")
	}
	if loadCount != 1 {
		t.Errorf("Expected loader called once, got %d times", loadCount)
	}

	stats := cache.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Layers != 1 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestCacheEviction(t *testing.T) {
	cache := NewLayerCache(3)

	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("layer%d", i)
		if _, err := cache.Get(name, func() (*Layer, error) { return NewLayer(name), nil }); err != nil {
			t.Fatalf("Failed to load %s: %v", name, err)
		}
	}

	stats := cache.Stats()
	if stats.Layers != 3 {
		t.Errorf("Expected 3 cached layers, got %d", stats.Layers)
	}
	if stats.Evicted != 2 {
		t.Errorf("Expected 2 evictions, got %d", stats.Evicted)
	}

	// The oldest layer was evicted and reloads.
	reloaded := false
	cache.Get("layer0", func() (*Layer, error) {
		reloaded = true
		return NewLayer("layer0"), nil
	})
	if !reloaded {
		t.Error("Expected evicted layer to be reloaded")
	}
}

func TestCacheLoaderErrorNotCached(t *testing.T) {
	cache := NewLayerCache(2)
	failure := errors.New("disk on fire")

	if _, err := cache.Get("x", func() (*Layer, error) { return nil, failure }); !errors.Is(err, failure) {
		t.Fatalf("Expected loader error, got %v", err)
	}
	layer, err := cache.Get("x", func() (*Layer, error) { return NewLayer("x"), nil })
	if err != nil || layer == nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
	if stats := cache.Stats(); stats.Failures != 1 || stats.Misses != 2 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestCacheConcurrentLoadsShareLoader(t *testing.T) {
	cache := NewLayerCache(2)
	var loads int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	results := make([]*Layer, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = cache.Get("shared", func() (*Layer, error) {
				atomic.AddInt32(&loads, 1)
				<-release
				return NewLayer("shared"), nil
			})
		}(i)
	}
	close(release)
	wg.Wait()

	for i := range results {
		if results[i] == nil || results[i] != results[0] {
			t.Fatalf("Goroutine %d got a different layer", i)
		}
	}
	if loads < 1 || loads > int32(len(results)) {
		t.Errorf("Unexpected load count %d", loads)
	}
	if stats := cache.Stats(); stats.Hits+stats.Misses != int64(len(results)) {
		t.Errorf("Expected %d lookups, got %+v", len(results), stats)
	}
}

func TestCachePurge(t *testing.T) {
	cache := NewLayerCache(0)
	cache.Get("a", func() (*Layer, error) { return NewLayer("a"), nil })
	cache.Get("b", func() (*Layer, error) { return NewLayer("b"), nil })
	cache.Remove("a")

	if stats := cache.Stats(); stats.Layers != 1 {
		t.Errorf("Expected 1 layer after remove, got %d", stats.Layers)
	}

	cache.Purge()
	if stats := cache.Stats(); stats.Layers != 0 || stats.Misses != 0 {
		t.Errorf("Expected cleared cache, got %+v", stats)
	}
}
