package cache

import (
	"context"
	"time"

	"studybot/internal/constant"

	"github.com/patrickmn/go-cache"
)

// MemoryCache is the single-worker/test implementation.
type MemoryCache struct {
	cache *cache.Cache
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		cache: cache.New(constant.CacheTTL, 10*time.Minute),
	}
}

func (c *MemoryCache) Get(_ context.Context, prompt string) (string, bool) {
	if x, found := c.cache.Get(NormalizeKey(prompt)); found {
		return x.(string), true
	}
	return "", false
}

func (c *MemoryCache) Set(_ context.Context, prompt, text string) {
	c.cache.Set(NormalizeKey(prompt), text, cache.DefaultExpiration)
}
