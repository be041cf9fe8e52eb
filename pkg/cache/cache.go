// Package cache stores solved blocking instances keyed by a canonical network
// hash, backed by an in-process LRU or by Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"netblock/pkg/apperror"
	"netblock/pkg/config"
)

// Backend types for cache implementations.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Standard errors returned by cache operations.
var (
	// ErrKeyNotFound is returned when a requested key does not exist in the cache.
	ErrKeyNotFound = errors.New("key not found")
	// ErrCacheClosed is returned when an operation is attempted on a closed cache.
	ErrCacheClosed = errors.New("cache is closed")
)

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns ErrKeyNotFound if the key does not exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key. A non-positive ttl means the backend default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// DeleteByPattern removes keys matching a glob with a single '*'
	// and returns how many were removed.
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)

	Stats(ctx context.Context) (*Stats, error)
	Close() error
}

// Stats holds counters reported by a backend.
type Stats struct {
	TotalKeys    int64
	Hits         int64
	Misses       int64
	HitRate      float64
	MemoryBytes  int64
	KeysByPrefix map[string]int64
	Backend      string
}

// Options configures New.
type Options struct {
	Backend    string
	DefaultTTL time.Duration

	// memory
	MaxEntries      int
	CleanupInterval time.Duration

	// redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int
}

// DefaultOptions returns options for a memory cache.
func DefaultOptions() *Options {
	return &Options{
		Backend:         BackendMemory,
		DefaultTTL:      24 * time.Hour,
		MaxEntries:      1000,
		CleanupInterval: time.Minute,
		RedisAddr:       "localhost:6379",
		RedisPoolSize:   10,
	}
}

// FromConfig создаёт опции из конфигурации
func FromConfig(cfg *config.CacheConfig) *Options {
	opts := DefaultOptions()
	opts.Backend = cfg.Driver
	opts.DefaultTTL = cfg.DefaultTTL
	opts.MaxEntries = cfg.MaxEntries
	opts.RedisAddr = cfg.Address()
	opts.RedisPassword = cfg.Password
	opts.RedisDB = cfg.DB
	return opts
}

// New создаёт кэш на основе опций
func New(opts *Options) (Cache, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	switch opts.Backend {
	case BackendRedis:
		return NewRedisCache(opts)
	case BackendMemory, "":
		return NewMemoryCache(opts), nil
	default:
		return nil, apperror.New(apperror.CodeConfigInvalid,
			fmt.Sprintf("unknown cache backend %q", opts.Backend)).
			WithField("cache.driver")
	}
}
