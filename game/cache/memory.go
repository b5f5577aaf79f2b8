package cache

import (
	"context"
	"fmt"
	"sync"
)

// MemoryCache is a process-local SolutionCache
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	byID    map[string]string
	locks   map[string]chan struct{}
}

// NewMemoryCache creates an empty in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*Entry),
		byID:    make(map[string]string),
		locks:   make(map[string]chan struct{}),
	}
}

func (c *MemoryCache) Get(_ context.Context, fingerprint string) (*Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[fingerprint]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

func (c *MemoryCache) GetByID(ctx context.Context, id string) (*Entry, error) {
	c.mu.RLock()
	fingerprint, ok := c.byID[id]
	c.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return c.Get(ctx, fingerprint)
}

// Put stores e under fingerprint. A fingerprint keeps the ID it was first
// stored with, so e.ID is overwritten when the fingerprint is already cached.
func (c *MemoryCache) Put(_ context.Context, fingerprint string, e *Entry) error {
	if err := checkCacheable(e); err != nil {
		return err
	}
	e.Fingerprint = fingerprint

	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.entries[fingerprint]; ok {
		e.ID = old.ID
	}
	c.entries[fingerprint] = e
	c.byID[e.ID] = fingerprint
	return nil
}

// Lock blocks until the fingerprint is free or ctx is done
func (c *MemoryCache) Lock(ctx context.Context, fingerprint string) (func(), error) {
	c.mu.Lock()
	ch, ok := c.locks[fingerprint]
	if !ok {
		ch = make(chan struct{}, 1)
		c.locks[fingerprint] = ch
	}
	c.mu.Unlock()

	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrLocked, ctx.Err())
	}
}

// Len returns the number of cached fingerprints
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
