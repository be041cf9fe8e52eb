package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// scanBatch размер страницы SCAN при удалении по шаблону
const scanBatch = 500

// RedisCache Redis реализация кэша
type RedisCache struct {
	client     *redis.Client
	defaultTTL time.Duration
}

// NewRedisCache подключается к Redis и проверяет соединение
func NewRedisCache(opts *Options) (*RedisCache, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	poolSize := opts.RedisPoolSize
	if poolSize <= 0 {
		poolSize = 10
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.RedisAddr,
		Password: opts.RedisPassword,
		DB:       opts.RedisDB,
		PoolSize: poolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.RedisAddr, err)
	}

	return &RedisCache{client: client, defaultTTL: opts.DefaultTTL}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	return val, err
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// DeleteByPattern обходит ключи через SCAN, чтобы не блокировать сервер
func (c *RedisCache) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	var (
		cursor  uint64
		deleted int64
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += n
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}

func (c *RedisCache) Stats(ctx context.Context) (*Stats, error) {
	info, err := c.client.Info(ctx, "stats", "memory").Result()
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		KeysByPrefix: make(map[string]int64),
		Backend:      BackendRedis,
	}
	for _, line := range strings.Split(info, "\n") {
		name, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		// Статистика не критична: нераспознанные значения остаются нулевыми
		n, _ := strconv.ParseInt(value, 10, 64)
		switch name {
		case "keyspace_hits":
			stats.Hits = n
		case "keyspace_misses":
			stats.Misses = n
		case "used_memory":
			stats.MemoryBytes = n
		}
	}

	if size, err := c.client.DBSize(ctx).Result(); err == nil {
		stats.TotalKeys = size
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
