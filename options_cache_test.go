package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-models/pkg/task"
)

type countingCache struct {
	MemoryProgramCache
	sets int
}

func (c *countingCache) Set(key string, value any) {
	c.sets++
	c.MemoryProgramCache.Set(key, value)
}

func TestProgramCacheSharedAcrossModels(t *testing.T) {
	cache := &countingCache{}
	loop := task.NewLoop()
	schema := MustDefine("rect", []Field{
		{Name: "w", Type: Number},
		{Name: "h", Type: Number},
		{Name: "area", Type: DeriveExpr(Number, "w * h")},
	}, WithLoop(loop), WithProgramCache(cache))

	for i := 1; i <= 3; i++ {
		m := schema.MustNew(map[string]any{"w": i, "h": 2})
		settle(t, m)
		assert.Equal(t, float64(i*2), m.Value("area"))
	}
	assert.Equal(t, 1, cache.sets, "expression compiled once per schema")
}

func TestBoundedProgramCache(t *testing.T) {
	cache, err := NewBoundedProgramCache(16)
	require.NoError(t, err)
	defer cache.Close()

	loop := task.NewLoop()
	schema := MustDefine("doubler", []Field{
		{Name: "n", Type: Number},
		{Name: "twice", Type: DeriveExpr(Number, "n * 2")},
	}, WithLoop(loop), WithProgramCache(cache))

	m := schema.MustNew(map[string]any{"n": 4})
	settle(t, m)
	cache.Wait()

	assert.Equal(t, float64(8), m.Value("twice"))
	_, ok := cache.Get(schema.declaration.cacheKey("expr", "n * 2"))
	assert.True(t, ok)
}
