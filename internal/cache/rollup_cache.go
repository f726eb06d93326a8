package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/pipeline/replenishment"
	"github.com/andresuchdata/stockcast/pkg/logger"
)

const rollupKeyPrefix = "rollups"

// RollupCache caches rollup read models per tenant and filter.
type RollupCache interface {
	Get(ctx context.Context, filter domain.RollupFilter) ([]domain.RollupSummary, bool, error)
	Set(ctx context.Context, filter domain.RollupFilter, rollups []domain.RollupSummary) error
	InvalidateTenant(ctx context.Context, tenantID string) error
}

type redisRollupCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopRollupCache struct{}

// NewRollupCache returns a Redis backed cache, or a noop cache when caching
// is disabled.
func NewRollupCache(client *redis.Client, ttl time.Duration) RollupCache {
	if client == nil {
		return noopRollupCache{}
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &redisRollupCache{client: client, ttl: ttl}
}

func NewNoopRollupCache() RollupCache {
	return noopRollupCache{}
}

// rollupPayload is the cached form; the sum type is split by variant.
type rollupPayload struct {
	Warehouses []domain.WarehouseRollup `json:"warehouses"`
	Categories []domain.CategoryRollup  `json:"categories"`
}

func encodeRollups(rollups []domain.RollupSummary) ([]byte, error) {
	var p rollupPayload
	for _, r := range rollups {
		switch v := r.(type) {
		case domain.WarehouseRollup:
			p.Warehouses = append(p.Warehouses, v)
		case domain.CategoryRollup:
			p.Categories = append(p.Categories, v)
		}
	}
	return json.Marshal(p)
}

func decodeRollups(data []byte) ([]domain.RollupSummary, error) {
	var p rollupPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	out := make([]domain.RollupSummary, 0, len(p.Warehouses)+len(p.Categories))
	for _, w := range p.Warehouses {
		out = append(out, w)
	}
	for _, c := range p.Categories {
		out = append(out, c)
	}
	return out, nil
}

func (c *redisRollupCache) Get(ctx context.Context, filter domain.RollupFilter) ([]domain.RollupSummary, bool, error) {
	payload, err := c.client.Get(ctx, rollupKey(filter)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	rollups, err := decodeRollups(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode rollup cache: %w", err)
	}
	return rollups, true, nil
}

func (c *redisRollupCache) Set(ctx context.Context, filter domain.RollupFilter, rollups []domain.RollupSummary) error {
	payload, err := encodeRollups(rollups)
	if err != nil {
		return fmt.Errorf("encode rollup cache: %w", err)
	}
	if err := c.client.Set(ctx, rollupKey(filter), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisRollupCache) InvalidateTenant(ctx context.Context, tenantID string) error {
	return deleteKeysWithPrefix(ctx, c.client, tenantPrefix(tenantID), scanBatchSize)
}

func (noopRollupCache) Get(context.Context, domain.RollupFilter) ([]domain.RollupSummary, bool, error) {
	return nil, false, nil
}

func (noopRollupCache) Set(context.Context, domain.RollupFilter, []domain.RollupSummary) error {
	return nil
}

func (noopRollupCache) InvalidateTenant(context.Context, string) error {
	return nil
}

func tenantPrefix(tenantID string) string {
	return fmt.Sprintf("%s:%s:", rollupKeyPrefix, tenantID)
}

func rollupKey(filter domain.RollupFilter) string {
	return tenantPrefix(filter.TenantID) + rollupFilterHash(filter)
}

func rollupFilterHash(filter domain.RollupFilter) string {
	parts := []string{}
	if filter.Level != "" {
		parts = append(parts, "level="+strings.ToLower(string(filter.Level)))
	}
	if filter.WarehouseID != "" {
		parts = append(parts, "warehouse_id="+strings.TrimSpace(filter.WarehouseID))
	}
	if filter.RunID != "" {
		parts = append(parts, "run_id="+filter.RunID)
	}
	if len(parts) == 0 {
		return "default"
	}

	sort.Strings(parts)
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// Invalidator drops a tenant's cached rollups once its new output is
// published. Chain it after the publisher that makes the output visible. The
// output is already live when it runs, so a failed invalidation is logged and
// left to the cache TTL.
type Invalidator struct {
	cache RollupCache
}

var _ replenishment.Publisher = (*Invalidator)(nil)

func NewInvalidator(cache RollupCache) *Invalidator {
	return &Invalidator{cache: cache}
}

func (i *Invalidator) Publish(ctx context.Context, out *replenishment.Output) error {
	if err := i.cache.InvalidateTenant(ctx, out.TenantID); err != nil {
		log := logger.ForComponent("cache")
		log.Warn().Err(err).Str("tenant_id", out.TenantID).Msg("rollup cache invalidation failed")
	}
	return nil
}
