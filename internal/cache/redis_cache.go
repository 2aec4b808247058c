package cache

import (
	"context"
	"errors"

	"studybot/internal/constant"
	"studybot/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RedisCache is the shared production cache: all workers see the same
// entries, and entries lapse on TTL alone.
type RedisCache struct {
	client *redis.Client
	log    logger.ILogger
}

func NewRedisCache(client *redis.Client, log logger.ILogger) *RedisCache {
	return &RedisCache{client: client, log: log}
}

func (c *RedisCache) Get(ctx context.Context, prompt string) (string, bool) {
	text, err := c.client.Get(ctx, NormalizeKey(prompt)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("cache", "cache get failed, treating as miss", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return "", false
	}
	return text, true
}

func (c *RedisCache) Set(ctx context.Context, prompt, text string) {
	if err := c.client.Set(ctx, NormalizeKey(prompt), text, constant.CacheTTL).Err(); err != nil {
		c.log.Warn("cache", "cache set failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
