package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"postboard/pkg/domain"
)

// RedisPostCache keeps serialized post lists in Redis with TTL.
type RedisPostCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPostCache builds a Redis-backed post cache. ttl <= 0 falls back to
// DefaultTTL.
func NewRedisPostCache(addr, password string, ttl time.Duration) *RedisPostCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisPostCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		ttl: ttl,
	}
}

// Get returns the cached post list for the owner, or a miss.
func (c *RedisPostCache) Get(ownerKey string) ([]domain.Post, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	raw, err := c.client.Get(ctx, cacheKey(ownerKey)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var posts []domain.Post
	if err := json.Unmarshal(raw, &posts); err != nil {
		return nil, false, err
	}
	return posts, true, nil
}

// Set stores the serialized post list and resets the entry's age.
func (c *RedisPostCache) Set(ownerKey string, posts []domain.Post) error {
	raw, err := json.Marshal(posts)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return c.client.Set(ctx, cacheKey(ownerKey), raw, c.ttl).Err()
}

// Invalidate removes the owner's entry.
func (c *RedisPostCache) Invalidate(ownerKey string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.client.Del(ctx, cacheKey(ownerKey)).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}

func cacheKey(ownerKey string) string {
	return "posts:" + ownerKey
}
