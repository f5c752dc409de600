// Package tipcache keeps the daily wellness tip for one calendar day.
package tipcache

import (
	"context"
	"fmt"
	"time"

	"github.com/aquemenida/caliope-ai-studio/internal/client/repositories/metadata"
	"github.com/aquemenida/caliope-ai-studio/internal/common"
	"github.com/redis/go-redis/v9"
)

// Cache stores one tip per day key (timex.DayKey). Get reports a miss with
// ok == false and a nil error.
type Cache interface {
	Get(ctx context.Context, day string) (tip string, ok bool, err error)
	Set(ctx context.Context, day, tip string, ttl time.Duration) error
}

// MetadataCache keeps the tip in the client's SQLite metadata table. Only
// the latest day is kept; ttl is ignored because the day key already
// expires the entry.
type MetadataCache struct {
	repo metadata.Repository
}

func NewMetadataCache(repo metadata.Repository) *MetadataCache {
	return &MetadataCache{repo: repo}
}

func (c *MetadataCache) Get(ctx context.Context, day string) (string, bool, error) {
	v, err := c.repo.Get(ctx, common.MetaTipCachePrefix+day)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return string(v), true, nil
}

func (c *MetadataCache) Set(ctx context.Context, day, tip string, _ time.Duration) error {
	if err := c.repo.DeletePrefix(ctx, common.MetaTipCachePrefix); err != nil {
		return err
	}
	return c.repo.Set(ctx, common.MetaTipCachePrefix+day, []byte(tip))
}

const redisKeyPrefix = "caliope:tip:"

type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to addr and pings it.
func NewRedisCache(ctx context.Context, addr string) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", addr, err)
	}
	return &RedisCache{client: client}, nil
}

func NewRedisCacheWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, day string) (string, bool, error) {
	v, err := c.client.Get(ctx, redisKeyPrefix+day).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get tip from redis: %w", err)
	}
	return v, true, nil
}

func (c *RedisCache) Set(ctx context.Context, day, tip string, ttl time.Duration) error {
	if err := c.client.Set(ctx, redisKeyPrefix+day, tip, ttl).Err(); err != nil {
		return fmt.Errorf("set tip in redis: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
