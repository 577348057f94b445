package domain

import (
	"context"
	"time"
)

// PayoutCache stores computed payout results keyed by (market, viewer) so the
// API does not recompute on every poll. Entries carry a short TTL and are
// invalidated whenever the market changes.
type PayoutCache interface {
	Set(ctx context.Context, marketID, viewer string, res PayoutResult, ttl time.Duration) error
	Get(ctx context.Context, marketID, viewer string) (PayoutResult, error)
	InvalidateMarket(ctx context.Context, marketID string) error
}

// MarketCache provides fast market snapshot lookups.
type MarketCache interface {
	Set(ctx context.Context, market MarketSnapshot) error
	Get(ctx context.Context, id string) (MarketSnapshot, error)
	Invalidate(ctx context.Context, id string) error
}

// MatchCache stores the most recent score snapshot per match so the API can
// classify live markets without talking to the external feed.
type MatchCache interface {
	Set(ctx context.Context, match MatchSnapshot) error
	Get(ctx context.Context, matchID string) (MatchSnapshot, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking. Settlement acquires a per-market
// lock so a market is settled exactly once even with multiple workers.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub for settlement and match-result events, plus a
// durable stream for consumers that must not miss settlements.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
}
