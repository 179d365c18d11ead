package models

import (
	"sync"

	"github.com/dgraph-io/ristretto/v2"
)

// ProgramCache stores compiled Programs. Keys combine the engine, the schema
// declaration and the expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// WithProgramCache shares cache between the evaluators of the schema or model.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *config) {
		cfg.programCache = cache
	}
}

// MemoryProgramCache is an unbounded ProgramCache safe for concurrent use.
type MemoryProgramCache struct {
	programs sync.Map
}

// NewMemoryProgramCache returns an empty cache.
func NewMemoryProgramCache() *MemoryProgramCache {
	return &MemoryProgramCache{}
}

func (c *MemoryProgramCache) Get(key string) (any, bool) {
	return c.programs.Load(key)
}

func (c *MemoryProgramCache) Set(key string, value any) {
	c.programs.Store(key, value)
}

// BoundedProgramCache keeps at most a fixed number of programs, evicting the
// least valuable ones. Sets are applied asynchronously, so a program may be
// compiled more than once right after startup.
type BoundedProgramCache struct {
	cache *ristretto.Cache[string, any]
}

// NewBoundedProgramCache returns a cache holding up to maxPrograms programs.
func NewBoundedProgramCache(maxPrograms int64) (*BoundedProgramCache, error) {
	if maxPrograms <= 0 {
		maxPrograms = 1024
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, any]{
		NumCounters: maxPrograms * 10,
		MaxCost:     maxPrograms,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &BoundedProgramCache{cache: cache}, nil
}

func (c *BoundedProgramCache) Get(key string) (any, bool) {
	return c.cache.Get(key)
}

func (c *BoundedProgramCache) Set(key string, value any) {
	c.cache.Set(key, value, 1)
}

// Wait blocks until pending sets are visible to Get.
func (c *BoundedProgramCache) Wait() { c.cache.Wait() }

// Close stops the background goroutines of the cache.
func (c *BoundedProgramCache) Close() { c.cache.Close() }
