package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryCache in-memory реализация кэша с вытеснением LRU
type MemoryCache struct {
	mu         sync.Mutex
	items      map[string]*list.Element
	order      *list.List // голова - последний использованный
	defaultTTL time.Duration
	maxEntries int

	hits   atomic.Int64
	misses atomic.Int64

	closed atomic.Bool
	stopCh chan struct{}
	wg     sync.WaitGroup
}

type cacheItem struct {
	key       string
	value     []byte
	expiresAt time.Time
}

func (i *cacheItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

// NewMemoryCache создаёт кэш и запускает фоновую очистку просроченных записей
func NewMemoryCache(opts *Options) *MemoryCache {
	if opts == nil {
		opts = DefaultOptions()
	}

	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	cleanupInterval := opts.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	c := &MemoryCache{
		items:      make(map[string]*list.Element),
		order:      list.New(),
		defaultTTL: opts.DefaultTTL,
		maxEntries: maxEntries,
		stopCh:     make(chan struct{}),
	}

	c.wg.Add(1)
	go c.cleanupLoop(cleanupInterval)

	return c
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok || el.Value.(*cacheItem).expired(time.Now()) {
		c.misses.Add(1)
		return nil, ErrKeyNotFound
	}
	c.hits.Add(1)
	c.order.MoveToFront(el)

	// Возвращаем копию
	item := el.Value.(*cacheItem)
	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}

	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	item := &cacheItem{key: key, value: make([]byte, len(value))}
	copy(item.value, value)
	if ttl > 0 {
		item.expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value = item
		c.order.MoveToFront(el)
		return nil
	}

	for len(c.items) >= c.maxEntries {
		c.evictOldest()
	}
	c.items[key] = c.order.PushFront(item)
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}

	c.mu.Lock()
	c.remove(key)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	if c.closed.Load() {
		return 0, ErrCacheClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var n int64
	for key := range c.items {
		if matchPattern(pattern, key) {
			c.remove(key)
			n++
		}
	}
	return n, nil
}

func (c *MemoryCache) Stats(ctx context.Context) (*Stats, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}

	stats := &Stats{
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		KeysByPrefix: make(map[string]int64),
		Backend:      BackendMemory,
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, el := range c.items {
		item := el.Value.(*cacheItem)
		if item.expired(now) {
			continue
		}
		stats.TotalKeys++
		stats.MemoryBytes += int64(len(item.value))
		stats.KeysByPrefix[extractPrefix(key)]++
	}
	return stats, nil
}

// Close останавливает очистку; повторный вызов безопасен
func (c *MemoryCache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	close(c.stopCh)
	c.wg.Wait()

	c.mu.Lock()
	c.items = nil
	c.order.Init()
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) cleanupLoop(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.purgeExpired()
		}
	}
}

func (c *MemoryCache) purgeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, el := range c.items {
		if el.Value.(*cacheItem).expired(now) {
			c.remove(key)
		}
	}
}

// remove и evictOldest вызываются под c.mu
func (c *MemoryCache) remove(key string) {
	if el, ok := c.items[key]; ok {
		c.order.Remove(el)
		delete(c.items, key)
	}
}

func (c *MemoryCache) evictOldest() {
	el := c.order.Back()
	if el == nil {
		return
	}
	c.remove(el.Value.(*cacheItem).key)
}

// matchPattern проверяет ключ по шаблону с одной '*':
// "*", "prefix*", "*suffix", "prefix*suffix" или точное совпадение
func matchPattern(pattern, key string) bool {
	prefix, suffix, found := strings.Cut(pattern, "*")
	if !found {
		return pattern == key
	}
	if len(key) < len(prefix)+len(suffix) {
		return false
	}
	return strings.HasPrefix(key, prefix) && strings.HasSuffix(key, suffix)
}

// extractPrefix извлекает префикс ключа до первого ':'
func extractPrefix(key string) string {
	if prefix, _, ok := strings.Cut(key, ":"); ok && prefix != "" {
		return prefix
	}
	return "other"
}
