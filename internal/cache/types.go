// Package cache 使用 redis 缓存类型名到类型 ID 的映射
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const typeKeyPrefix = "shift:type:"

func typeKey(name string) string {
	return typeKeyPrefix + name
}

type TypeCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTypeCache(client *redis.Client, ttl time.Duration) *TypeCache {
	return &TypeCache{
		client: client,
		ttl:    ttl,
	}
}

// GetTypeIDs 返回命中缓存的类型 ID 以及没有命中的类型名
func (c *TypeCache) GetTypeIDs(ctx context.Context, names []string) (map[string]int64, []string, error) {
	if len(names) == 0 {
		return map[string]int64{}, nil, nil
	}

	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = typeKey(name)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, err
	}

	hits := make(map[string]int64, len(names))
	var missing []string
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			missing = append(missing, names[i])
			continue
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("缓存中类型 %s 的 ID 无效: %w", names[i], err)
		}
		hits[names[i]] = id
	}

	return hits, missing, nil
}

func (c *TypeCache) SetTypeIDs(ctx context.Context, ids map[string]int64) error {
	for name, id := range ids {
		if err := c.client.Set(ctx, typeKey(name), strconv.FormatInt(id, 10), c.ttl).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (c *TypeCache) Invalidate(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}

	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = typeKey(name)
	}
	return c.client.Del(ctx, keys...).Err()
}
