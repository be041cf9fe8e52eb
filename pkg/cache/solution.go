package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"netblock/pkg/domain"
)

// SolutionCache кэш найденных минимальных блокирующих множеств
type SolutionCache struct {
	cache      Cache
	defaultTTL time.Duration
}

// CachedSolution кэшированный результат поиска
type CachedSolution struct {
	Cost       int64            `json:"cost"`
	Blocked    []domain.LinkKey `json:"blocked"`
	Oracle     string           `json:"oracle"`
	Iterations int              `json:"iterations"`
	ComputedAt time.Time        `json:"computed_at"`
}

// NewSolutionCache оборачивает хранилище
func NewSolutionCache(cache Cache, defaultTTL time.Duration) *SolutionCache {
	if defaultTTL <= 0 {
		defaultTTL = 24 * time.Hour
	}
	return &SolutionCache{cache: cache, defaultTTL: defaultTTL}
}

// Key ключ для экземпляра задачи
func (sc *SolutionCache) Key(net *domain.Network, targetFlow, ceiling int64) string {
	return BuildSolveKey(NetworkHash(net), targetFlow, ceiling)
}

// Get возвращает кэшированное решение; found=false при промахе
func (sc *SolutionCache) Get(ctx context.Context, net *domain.Network, targetFlow, ceiling int64) (*CachedSolution, bool, error) {
	key := sc.Key(net, targetFlow, ceiling)

	data, err := sc.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var sol CachedSolution
	if err := json.Unmarshal(data, &sol); err != nil {
		// Повреждённая запись считается промахом
		_ = sc.cache.Delete(ctx, key)
		return nil, false, nil
	}
	return &sol, true, nil
}

// Set сохраняет решение. ComputedAt заполняется, если не задано.
func (sc *SolutionCache) Set(ctx context.Context, net *domain.Network, targetFlow, ceiling int64, sol *CachedSolution, ttl time.Duration) error {
	if sol == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = sc.defaultTTL
	}
	if sol.ComputedAt.IsZero() {
		sol.ComputedAt = time.Now().UTC()
	}
	if sol.Blocked == nil {
		sol.Blocked = []domain.LinkKey{}
	}

	data, err := json.Marshal(sol)
	if err != nil {
		return fmt.Errorf("marshal cached solution: %w", err)
	}
	return sc.cache.Set(ctx, sc.Key(net, targetFlow, ceiling), data, ttl)
}

// Invalidate удаляет все решения для сети, независимо от цели и потолка
func (sc *SolutionCache) Invalidate(ctx context.Context, net *domain.Network) (int64, error) {
	return sc.cache.DeleteByPattern(ctx, fmt.Sprintf("solve:%s:*", NetworkHash(net)))
}

// InvalidateAll удаляет все кэшированные решения
func (sc *SolutionCache) InvalidateAll(ctx context.Context) (int64, error) {
	return sc.cache.DeleteByPattern(ctx, "solve:*")
}
