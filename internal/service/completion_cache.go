package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const completionCacheTTL = 5 * time.Minute

// CompletionCache 完成度的 redis 缓存，任何影响完成度的写入都会按项目整体失效
type CompletionCache struct {
	RDB *redis.Client
}

func NewCompletionCache(rdb *redis.Client) *CompletionCache {
	return &CompletionCache{RDB: rdb}
}

func (c *CompletionCache) key(projectID, userID uint, role string) string {
	return fmt.Sprintf("completion:%d:%d:%s", projectID, userID, role)
}

func (c *CompletionCache) Get(ctx context.Context, projectID, userID uint, role string) (float64, bool) {
	if c.RDB == nil {
		return 0, false
	}
	val, err := c.RDB.Get(ctx, c.key(projectID, userID, role)).Result()
	if err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func (c *CompletionCache) Set(ctx context.Context, projectID, userID uint, role string, value float64) {
	if c.RDB == nil {
		return
	}
	c.RDB.Set(ctx, c.key(projectID, userID, role), strconv.FormatFloat(value, 'f', -1, 64), completionCacheTTL)
}

func (c *CompletionCache) Invalidate(ctx context.Context, projectID uint) {
	if c.RDB == nil {
		return
	}
	pattern := fmt.Sprintf("completion:%d:*", projectID)
	keys, err := c.RDB.Keys(ctx, pattern).Result()
	if err != nil || len(keys) == 0 {
		return
	}
	c.RDB.Del(ctx, keys...)
}
