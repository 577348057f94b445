package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sportpools/matchpool/internal/domain"
)

const marketTTL = 5 * time.Minute

// MarketCache implements domain.MarketCache using Redis hashes with JSON-
// serialized market snapshots.
//
// Key schema:
//
//	market:{id} - hash with field "data" containing JSON
type MarketCache struct {
	rdb *redis.Client
}

// NewMarketCache creates a MarketCache backed by the given Client.
func NewMarketCache(c *Client) *MarketCache {
	return &MarketCache{rdb: c.Underlying()}
}

func marketKey(id string) string { return "market:" + id }

// Set stores a market snapshot in the cache with a 5-minute TTL.
func (mc *MarketCache) Set(ctx context.Context, market domain.MarketSnapshot) error {
	data, err := json.Marshal(market)
	if err != nil {
		return fmt.Errorf("redis: marshal market %s: %w", market.ID, err)
	}

	key := marketKey(market.ID)

	pipe := mc.rdb.TxPipeline()
	pipe.HSet(ctx, key, "data", data)
	pipe.Expire(ctx, key, marketTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set market %s: %w", market.ID, err)
	}
	return nil
}

// Get retrieves a market snapshot by its ID from the cache.
// It returns domain.ErrNotFound when the key does not exist.
func (mc *MarketCache) Get(ctx context.Context, id string) (domain.MarketSnapshot, error) {
	data, err := mc.rdb.HGet(ctx, marketKey(id), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.MarketSnapshot{}, domain.ErrNotFound
		}
		return domain.MarketSnapshot{}, fmt.Errorf("redis: get market %s: %w", id, err)
	}

	var market domain.MarketSnapshot
	if err := json.Unmarshal(data, &market); err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("redis: unmarshal market %s: %w", id, err)
	}
	return market, nil
}

// Invalidate removes a market snapshot from the cache.
func (mc *MarketCache) Invalidate(ctx context.Context, id string) error {
	if err := mc.rdb.Del(ctx, marketKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate market %s: %w", id, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.MarketCache = (*MarketCache)(nil)
