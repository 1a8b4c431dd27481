// Package dataloader implements a deduplicating, coalescing key-to-value
// loader: concurrent callers requesting the same key share one in-flight
// fetch, and resolved values are cached until Reset (spec §9 DESIGN NOTES:
// "Batched object loader (DataLoader-style)"). The cache itself is an LRU,
// the same hashicorp/golang-lru the teacher depends on directly.
package dataloader

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// FetchFunc retrieves the value for a single key.
type FetchFunc func(ctx context.Context, key string) ([]byte, error)

// Loader deduplicates concurrent loads of the same key and caches results.
type Loader struct {
	fetch FetchFunc

	mu      sync.Mutex
	cache   *lru.Cache
	inFlight map[string]*call
}

type call struct {
	done  chan struct{}
	value []byte
	err   error
}

// New constructs a Loader with the given cache size and fetch function.
func New(cacheSize int, fetch FetchFunc) *Loader {
	cache, err := lru.New(cacheSize)
	if err != nil {
		// Only returns an error for a non-positive size; fall back to a
		// minimal cache rather than panic in a constructor.
		cache, _ = lru.New(1)
	}
	return &Loader{fetch: fetch, cache: cache, inFlight: make(map[string]*call)}
}

// Load returns the cached value for key, or fetches it, coalescing
// concurrent callers for the same key into a single fetch.
func (l *Loader) Load(ctx context.Context, key string) ([]byte, error) {
	l.mu.Lock()
	if v, ok := l.cache.Get(key); ok {
		l.mu.Unlock()
		return v.([]byte), nil
	}
	if c, ok := l.inFlight[key]; ok {
		l.mu.Unlock()
		<-c.done
		return c.value, c.err
	}
	c := &call{done: make(chan struct{})}
	l.inFlight[key] = c
	l.mu.Unlock()

	c.value, c.err = l.fetch(ctx, key)

	l.mu.Lock()
	delete(l.inFlight, key)
	if c.err == nil {
		l.cache.Add(key, c.value)
	}
	l.mu.Unlock()
	close(c.done)

	return c.value, c.err
}

// Reset clears the cache and does not wait on in-flight calls or cancel
// them; a fetch that was in flight during Reset still completes, returns
// its value to its callers, and adds that value to the cache afterwards.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache.Purge()
}
