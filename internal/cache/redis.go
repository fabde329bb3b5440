// Package cache holds the Redis client constructor and the catalog list
// cache. A nil client disables caching and rate limiting.
package cache

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient returns nil when addr is empty or the server does not
// answer a ping, so callers degrade instead of failing startup.
func NewRedisClient(addr, password string, db int) *redis.Client {
	if strings.TrimSpace(addr) == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Println("[CACHE] [WARN] redis unavailable, caching disabled:", err)
		_ = client.Close()
		return nil
	}
	log.Println("[CACHE] [INFO] connected to redis:", addr)
	return client
}

// ListCache stores serialized list responses under a generation number.
// Invalidate bumps the generation so every older key simply ages out.
type ListCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewListCache(rdb *redis.Client, prefix string, ttl time.Duration) *ListCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &ListCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *ListCache) Enabled() bool {
	return c != nil && c.rdb != nil
}

func (c *ListCache) generationKey() string {
	return c.prefix + ":gen"
}

func (c *ListCache) key(ctx context.Context, query string) (string, error) {
	gen, err := c.rdb.Get(ctx, c.generationKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	sum := sha1.Sum([]byte(query))
	return fmt.Sprintf("%s:%d:%x", c.prefix, gen, sum[:]), nil
}

// Get reports a miss on any redis error.
func (c *ListCache) Get(ctx context.Context, query string) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}
	key, err := c.key(ctx, query)
	if err != nil {
		log.Println("[CACHE] [WARN] get failed:", err)
		return nil, false
	}
	bs, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Println("[CACHE] [WARN] get failed:", err)
		}
		return nil, false
	}
	return bs, true
}

func (c *ListCache) Set(ctx context.Context, query string, payload []byte) {
	if !c.Enabled() {
		return
	}
	key, err := c.key(ctx, query)
	if err != nil {
		log.Println("[CACHE] [WARN] set failed:", err)
		return
	}
	if err := c.rdb.SetEx(ctx, key, payload, c.ttl).Err(); err != nil {
		log.Println("[CACHE] [WARN] set failed:", err)
	}
}

func (c *ListCache) Invalidate(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	if err := c.rdb.Incr(ctx, c.generationKey()).Err(); err != nil {
		log.Println("[CACHE] [WARN] invalidate failed:", err)
	}
}
