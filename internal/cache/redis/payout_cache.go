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

// PayoutCache implements domain.PayoutCache using Redis hashes: one hash per
// market, one field per viewer wallet. Invalidation drops the whole hash so a
// market change clears every viewer's cached payout at once.
//
// Key schema:
//
//	payout:{marketID} - hash, field {viewer} containing JSON
type PayoutCache struct {
	rdb *redis.Client
}

// NewPayoutCache creates a PayoutCache backed by the given Client.
func NewPayoutCache(c *Client) *PayoutCache {
	return &PayoutCache{rdb: c.Underlying()}
}

func payoutKey(marketID string) string { return "payout:" + marketID }

// viewerField maps the viewer wallet to a hash field. Guests (empty wallet)
// share a single field.
func viewerField(viewer string) string {
	if viewer == "" {
		return "_guest"
	}
	return viewer
}

// Set stores a payout result for (market, viewer) with the given TTL. The TTL
// applies to the whole market hash; each write refreshes it.
func (pc *PayoutCache) Set(ctx context.Context, marketID, viewer string, res domain.PayoutResult, ttl time.Duration) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("redis: marshal payout for %s: %w", marketID, err)
	}

	key := payoutKey(marketID)

	pipe := pc.rdb.TxPipeline()
	pipe.HSet(ctx, key, viewerField(viewer), data)
	pipe.Expire(ctx, key, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set payout for %s: %w", marketID, err)
	}
	return nil
}

// Get retrieves a cached payout result for (market, viewer). It returns
// domain.ErrNotFound when no entry exists.
func (pc *PayoutCache) Get(ctx context.Context, marketID, viewer string) (domain.PayoutResult, error) {
	data, err := pc.rdb.HGet(ctx, payoutKey(marketID), viewerField(viewer)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.PayoutResult{}, domain.ErrNotFound
		}
		return domain.PayoutResult{}, fmt.Errorf("redis: get payout for %s: %w", marketID, err)
	}

	var res domain.PayoutResult
	if err := json.Unmarshal(data, &res); err != nil {
		return domain.PayoutResult{}, fmt.Errorf("redis: unmarshal payout for %s: %w", marketID, err)
	}
	return res, nil
}

// InvalidateMarket removes all cached payouts for a market.
func (pc *PayoutCache) InvalidateMarket(ctx context.Context, marketID string) error {
	if err := pc.rdb.Del(ctx, payoutKey(marketID)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate payouts for %s: %w", marketID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.PayoutCache = (*PayoutCache)(nil)
